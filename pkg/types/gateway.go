package types

import (
	"path/filepath"
	"sort"
)

// GatewayFile is a candidate aggregator file discovered by the scanner
type GatewayFile struct {
	Path    string // Absolute path below the scan root, as found (not resolved)
	Dir     string // Parent directory
	RelPath string // Slash-separated path relative to the scan root
}

// NewGatewayFile builds a GatewayFile for an absolute path found under root
func NewGatewayFile(root, path string) GatewayFile {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return GatewayFile{
		Path:    path,
		Dir:     filepath.Dir(path),
		RelPath: filepath.ToSlash(rel),
	}
}

// PackageName returns the name of the directory containing the gateway
func (g GatewayFile) PackageName() string {
	return filepath.Base(g.Dir)
}

// ModuleListSource records how a module list was obtained
type ModuleListSource string

const (
	ModulesExplicit ModuleListSource = "explicit" // Literal list assigned in the gateway
	ModulesInferred ModuleListSource = "inferred" // Sibling files in the gateway directory
)

// ModuleList is the ordered set of sibling module names a gateway aggregates.
// Names are not resolved to paths here.
type ModuleList struct {
	Names  []string
	Source ModuleListSource
}

// SymbolSet is a set of exported symbol names
type SymbolSet map[string]struct{}

// NewSymbolSet creates a set holding the given names
func NewSymbolSet(names ...string) SymbolSet {
	s := make(SymbolSet, len(names))
	s.Add(names...)
	return s
}

// Add inserts names into the set
func (s SymbolSet) Add(names ...string) {
	for _, name := range names {
		s[name] = struct{}{}
	}
}

// Union adds every name of other to s
func (s SymbolSet) Union(other SymbolSet) {
	for name := range other {
		s[name] = struct{}{}
	}
}

// Has reports whether name is in the set
func (s SymbolSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of names in the set
func (s SymbolSet) Len() int {
	return len(s)
}

// Sorted returns the names in lexicographic order
func (s SymbolSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
