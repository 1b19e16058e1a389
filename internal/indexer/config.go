package indexer

import (
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"

	"github.com/dshills/gatestub/internal/extractor"
	"github.com/dshills/gatestub/internal/scanner"
)

// Config contains the resolved settings the pipeline consumes
type Config struct {
	Root            string   // Scan root patterns are relative to; empty means each scanned directory
	Ignore          []string // Glob patterns pruned during scans
	Include         []string // When set, gateways must match one of these
	Indicators      []string // Substrings a gateway must all contain
	ModuleListName  string   // Variable holding a gateway's module list
	AllListName     string   // Variable holding a sibling's export list
	GatewayFilename string   // Name of gateway files (default: __init__.py)
	Submodules      []string // Directories never scanned
	Workers         int      // Concurrent tasks per directory (default: runtime.NumCPU())
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		Ignore: []string{
			".git", ".hg", ".venv", "venv", "__pycache__",
			"node_modules", "build", "dist", ".tox", ".mypy_cache",
		},
		Indicators:      []string{"import_module(", "globals()"},
		ModuleListName:  extractor.DefaultModuleListName,
		AllListName:     extractor.DefaultAllListName,
		GatewayFilename: scanner.DefaultGatewayFilename,
		Workers:         runtime.NumCPU(),
	}
}

// withDefaults fills zero values from DefaultConfig
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Root != "" {
		if abs, err := filepath.Abs(c.Root); err == nil {
			c.Root = abs
		}
	}
	if c.ModuleListName == "" {
		c.ModuleListName = def.ModuleListName
	}
	if c.AllListName == "" {
		c.AllListName = def.AllListName
	}
	if c.GatewayFilename == "" {
		c.GatewayFilename = def.GatewayFilename
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	return c
}

func (c Config) scannerOptions(submodules []string) scanner.Options {
	return scanner.Options{
		Ignore:          c.Ignore,
		Include:         c.Include,
		Indicators:      c.Indicators,
		Submodules:      append(append([]string(nil), c.Submodules...), submodules...),
		GatewayFilename: c.GatewayFilename,
	}
}

// validate compiles the patterns once so bad configuration fails early
func (c Config) validate() error {
	if _, err := scanner.CompilePatterns(c.Ignore); err != nil {
		return errors.Wrap(err, "invalid ignore patterns")
	}
	if _, err := scanner.CompilePatterns(c.Include); err != nil {
		return errors.Wrap(err, "invalid include patterns")
	}
	return nil
}
