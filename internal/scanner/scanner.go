package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/pkg/types"
)

// DefaultGatewayFilename is the file name of a package gateway
const DefaultGatewayFilename = "__init__.py"

// Options configures a Scanner
type Options struct {
	Ignore          []string
	Include         []string
	Indicators      []string
	Submodules      []string // Absolute directories to skip
	GatewayFilename string
}

// Scanner walks directory trees looking for gateway files
type Scanner struct {
	ignore      *PatternSet
	include     *PatternSet
	indicators  []string
	submodules  []string
	gatewayName string
	logger      *zap.Logger
}

// New compiles opts into a Scanner
func New(opts Options, logger *zap.Logger) (*Scanner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ignore, err := CompilePatterns(opts.Ignore)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile ignore patterns")
	}
	include, err := CompilePatterns(opts.Include)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile include patterns")
	}

	name := opts.GatewayFilename
	if name == "" {
		name = DefaultGatewayFilename
	}

	submodules := make([]string, 0, 2*len(opts.Submodules))
	for _, dir := range opts.Submodules {
		if abs, err := filepath.Abs(dir); err == nil {
			submodules = append(submodules, abs)
		}
		submodules = append(submodules, Identity(dir))
	}

	return &Scanner{
		ignore:      ignore,
		include:     include,
		indicators:  opts.Indicators,
		submodules:  submodules,
		gatewayName: name,
		logger:      logger,
	}, nil
}

// Scan returns the gateway files below root in walk order, deduplicated by
// resolved path
func (s *Scanner) Scan(root string) []types.GatewayFile {
	return s.ScanFrom(root, root)
}

// ScanFrom walks dir and matches ignore and include patterns against paths
// relative to root. A dir outside root is scanned as its own root.
func (s *Scanner) ScanFrom(root, dir string) []types.GatewayFile {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		s.logger.Warn("failed to resolve scan directory", zap.String("path", dir), zap.Error(err))
		return nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil || !within(absRoot, absDir) {
		absRoot = absDir
	}

	w := &walk{
		scanner: s,
		root:    absRoot,
		seen:    make(map[string]struct{}),
	}
	w.dir(absDir)
	return w.found
}

// IsGateway reports whether the file at path contains every indicator.
// An empty indicator list accepts any file.
func (s *Scanner) IsGateway(path string) bool {
	if len(s.indicators) == 0 {
		return true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("failed to read candidate gateway", zap.String("path", path), zap.Error(err))
		return false
	}
	text := string(data)
	for _, indicator := range s.indicators {
		if !strings.Contains(text, indicator) {
			return false
		}
	}
	return true
}

// inSubmodule reports whether path is a submodule root or below one
func (s *Scanner) inSubmodule(path string) bool {
	for _, sub := range s.submodules {
		if path == sub || strings.HasPrefix(path, sub+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

type walk struct {
	scanner *Scanner
	root    string
	seen    map[string]struct{}
	found   []types.GatewayFile
}

func (w *walk) dir(dir string) {
	s := w.scanner
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("failed to read directory", zap.String("path", dir), zap.Error(err))
		return
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		rel := w.rel(path)

		if s.ignore.Match(rel, entry.IsDir()) {
			s.logger.Debug("ignored", zap.String("path", rel))
			continue
		}

		resolved := Identity(path)
		if s.inSubmodule(path) || s.inSubmodule(resolved) {
			s.logger.Debug("skipping submodule path", zap.String("path", rel))
			continue
		}

		if entry.IsDir() {
			w.dir(path)
			continue
		}

		if entry.Name() != s.gatewayName {
			continue
		}
		if !s.include.Empty() && !s.include.MatchPath(rel) {
			continue
		}
		if _, dup := w.seen[resolved]; dup {
			continue
		}
		if !s.IsGateway(path) {
			continue
		}
		// the resolved path is only the dedupe key; stubs and siblings
		// follow the entry's own location
		w.seen[resolved] = struct{}{}
		w.found = append(w.found, types.GatewayFile{
			Path:    path,
			Dir:     dir,
			RelPath: rel,
		})
	}
}

func (w *walk) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// within reports whether path is root or below it
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Identity returns the canonical form of path used to deduplicate files:
// absolute and with symlinks resolved when possible
func Identity(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
