package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/internal/config"
	"github.com/dshills/gatestub/internal/indexer"
	"github.com/dshills/gatestub/internal/logging"
	"github.com/dshills/gatestub/internal/storage"
	"github.com/dshills/gatestub/internal/ui"
	"github.com/dshills/gatestub/internal/vcs"
)

// globalOptions holds the persistent flags and what PersistentPreRunE builds
// from them
type globalOptions struct {
	configFile string
	verbosity  int
	logJSON    bool
	workers    int
	noHistory  bool

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "gatestub",
		Short: "Generate .pyi stubs for dynamic-import gateway packages",
		Long: `gatestub finds Python gateway files (usually __init__.py) that re-export
sibling modules at import time through importlib, and writes a .pyi stub next
to each one listing the names it exports, so type checkers and editors can see
them.

Available commands:
  scan     - Classify and write stubs (asks before writing)
  check    - Exit non-zero when any stub is missing or stale
  render   - Print the stub of one gateway file
  history  - List recorded scans
  which    - Show which gateways export a symbol
  watch    - Re-scan when Python sources change
  serve    - Start the MCP server on stdio
  init     - Write a starter gatestub.toml

Examples:
  gatestub scan                 # Scan the current directory
  gatestub scan --dry-run src   # Show what would change below src
  gatestub check                # Use in CI or pre-commit hooks
  gatestub which Model          # Find the gateway exporting Model`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err == nil {
				if err := config.LoadDotEnv(wd); err != nil {
					return err
				}
			}
			g.logger = logging.New(g.verbosity, g.logJSON, cmd.ErrOrStderr())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = g.logger.Sync()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configFile, "config", "", "Config file (default: gatestub.toml in the scan root)")
	flags.CountVarP(&g.verbosity, "verbose", "v", "Increase output verbosity (-v, -vv)")
	flags.BoolVar(&g.logJSON, "log-json", false, "Emit logs as JSON")
	flags.IntVar(&g.workers, "workers", 0, "Concurrent gateway tasks (default: from config, else CPU count)")
	flags.BoolVar(&g.noHistory, "no-history", false, "Do not read or record run history")

	cmd.AddCommand(
		newScanCmd(g),
		newCheckCmd(g),
		newRenderCmd(g),
		newHistoryCmd(g),
		newWhichCmd(g),
		newWatchCmd(g),
		newServeCmd(g),
		newInitCmd(g),
		newVersionCmd(),
	)
	return cmd
}

// addRootFlag registers --root on commands that work on a scan root
func addRootFlag(cmd *cobra.Command, root *string) {
	cmd.Flags().StringVar(root, "root", ".", "Scan root: config lookup, stub headers and history are relative to it")
}

// resolveRoot returns root as an absolute, existing directory
func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.WithHint(errors.Wrapf(err, "scan root %s", root), "pass an existing directory with --root")
	}
	if !info.IsDir() {
		return "", errors.WithHint(errors.Newf("scan root %s is not a directory", root), "pass an existing directory with --root")
	}
	return abs, nil
}

// loadConfig resolves the configuration of root with flag overrides applied
func (g *globalOptions) loadConfig(root string) (*config.Config, error) {
	cfg, err := config.Load(root, g.configFile)
	if err != nil {
		return nil, errors.WithHint(err, "check gatestub.toml, [tool.gatestub] in pyproject.toml and GATESTUB_* variables")
	}
	if g.workers > 0 {
		cfg.Workers = g.workers
	}
	if g.noHistory {
		cfg.History.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "invalid configuration"), "run 'gatestub init' for a starter config")
	}
	for _, src := range cfg.Sources {
		g.logger.Debug("loaded config", zap.String("path", src))
	}
	return cfg, nil
}

// openHistory opens the history store, or returns nil when history is off
func (g *globalOptions) openHistory(cfg *config.Config) (storage.Storage, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := storage.NewSQLiteStorage(cfg.History.DBPath)
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "failed to open history"), "use --no-history or set history.db_path")
	}
	return store, nil
}

// newIndexer builds a pipeline for cfg anchored at root, with a progress bar
// when w is a terminal
func (g *globalOptions) newIndexer(cfg *config.Config, root string, w io.Writer) (*indexer.Indexer, error) {
	opts := []indexer.Option{
		indexer.WithLogger(g.logger),
		indexer.WithSubmoduleDiscovery(vcs.Submodules),
	}
	if isTerminal(w) && !g.logJSON {
		opts = append(opts, indexer.WithProgress(ui.NewProgressBar(w, "scan")))
	}
	icfg := cfg.IndexerConfig()
	icfg.Root = root
	return indexer.New(icfg, opts...)
}

// runPipeline classifies inputs below root
func (g *globalOptions) runPipeline(ctx context.Context, cmd *cobra.Command, cfg *config.Config, root string, inputs []string) (*indexer.Report, error) {
	idx, err := g.newIndexer(cfg, root, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		inputs = []string{root}
	}

	report, err := idx.Run(ctx, inputs)
	if errors.Is(err, indexer.ErrNoInput) {
		return nil, errors.WithHint(err, "pass existing files or directories")
	}
	return report, err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
