package extractor

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/internal/parser"
	"github.com/dshills/gatestub/pkg/types"
)

const (
	DefaultModuleListName = "modules_to_export"
	DefaultAllListName    = "__all__"
	DefaultSourceExt      = ".py"

	// versionName is the one lowercase name a gateway may bind directly
	versionName = "__version__"
)

// Extractor reads module lists and export lists from parsed sources
type Extractor struct {
	parser         *parser.Parser
	moduleListName string
	allListName    string
	sourceExt      string
	logger         *zap.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger for sibling diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithModuleListName sets the variable holding the gateway's module list
func WithModuleListName(name string) Option {
	return func(e *Extractor) {
		if name != "" {
			e.moduleListName = name
		}
	}
}

// WithAllListName sets the variable holding a sibling's export list
func WithAllListName(name string) Option {
	return func(e *Extractor) {
		if name != "" {
			e.allListName = name
		}
	}
}

// New creates an Extractor that parses siblings with p
func New(p *parser.Parser, opts ...Option) *Extractor {
	e := &Extractor{
		parser:         p,
		moduleListName: DefaultModuleListName,
		allListName:    DefaultAllListName,
		sourceExt:      DefaultSourceExt,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ModuleList returns the modules gateway aggregates. An explicit list
// assignment wins; otherwise every sibling source file except the gateway
// itself is used, in directory order.
func (e *Extractor) ModuleList(gateway *types.Module) types.ModuleList {
	if names, ok := FindList(gateway, e.moduleListName); ok {
		return types.ModuleList{Names: names, Source: types.ModulesExplicit}
	}
	return types.ModuleList{
		Names:  e.siblingStems(gateway.Path),
		Source: types.ModulesInferred,
	}
}

// siblingStems lists the stems of source files next to gatewayPath
func (e *Extractor) siblingStems(gatewayPath string) []string {
	dir := filepath.Dir(gatewayPath)
	self := filepath.Base(gatewayPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		e.logger.Warn("failed to list gateway directory",
			zap.String("path", dir),
			zap.Error(err))
		return nil
	}

	var stems []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == self || !strings.HasSuffix(name, e.sourceExt) {
			continue
		}
		stems = append(stems, strings.TrimSuffix(name, e.sourceExt))
	}
	return stems
}

// Collect unions the export lists of every module in modules with the
// gateway's own direct symbols
func (e *Extractor) Collect(ctx context.Context, gateway *types.Module, modules types.ModuleList) types.SymbolSet {
	symbols := types.NewSymbolSet()
	dir := filepath.Dir(gateway.Path)

	for _, name := range modules.Names {
		if ctx.Err() != nil {
			break
		}
		path, ok := e.resolve(dir, name)
		if !ok {
			continue
		}
		symbols.Add(e.ExportList(ctx, path)...)
	}

	symbols.Add(DirectSymbols(gateway)...)
	return symbols
}

// resolve maps a module name to its sibling file. Names that would leave the
// directory never resolve.
func (e *Extractor) resolve(dir, name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return filepath.Join(dir, name+e.sourceExt), true
}

// ExportList parses the module at path and returns its export list.
// Missing files are silent; unreadable or unparseable ones are logged.
func (e *Extractor) ExportList(ctx context.Context, path string) []string {
	mod, err := e.parser.ParseFile(ctx, path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			e.logger.Debug("sibling module not found", zap.String("module", path))
		case errors.Is(err, parser.ErrUnparseable):
			e.logger.Warn("skipping unparseable module",
				zap.String("module", path),
				zap.Error(err))
		default:
			e.logger.Warn("failed to read module",
				zap.String("module", path),
				zap.Error(err))
		}
		return nil
	}

	names, _ := FindList(mod, e.allListName)
	for _, st := range mod.Body {
		if st.Kind == types.StmtAugAssign && st.Op == "+=" && st.Binds(e.allListName) {
			names = append(names, st.Value.Strings()...)
		}
	}
	return names
}

// FindList returns the string elements of the first list or tuple literal
// assigned to name, searching breadth-first outside definitions
func FindList(mod *types.Module, name string) ([]string, bool) {
	var (
		names []string
		found bool
	)
	mod.Walk(func(st types.Stmt) bool {
		if st.Kind == types.StmtAssign && st.Binds(name) && st.Value.IsSequence() {
			names = st.Value.Strings()
			found = true
			return false
		}
		return true
	})
	return names, found
}

// DirectSymbols returns the names a gateway binds itself: plain assignment
// targets that start with an uppercase letter or are __version__, up to the
// first loop or conditional at module level
func DirectSymbols(mod *types.Module) []string {
	var names []string
	for _, st := range mod.Body {
		if st.Kind == types.StmtLoop || st.Kind == types.StmtConditional {
			break
		}
		if st.Kind != types.StmtAssign || st.Annotated {
			continue
		}
		for _, target := range st.Targets {
			if IsPublicName(target) {
				names = append(names, target)
			}
		}
	}
	return names
}

// IsPublicName reports whether a directly bound name is exported
func IsPublicName(name string) bool {
	if name == versionName {
		return true
	}
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}
