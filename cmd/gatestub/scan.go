package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/internal/config"
	"github.com/dshills/gatestub/internal/indexer"
	"github.com/dshills/gatestub/internal/storage"
	"github.com/dshills/gatestub/internal/ui"
	"github.com/dshills/gatestub/internal/vcs"
	"github.com/dshills/gatestub/internal/writer"
	"github.com/dshills/gatestub/pkg/types"
)

type scanOptions struct {
	root          string
	yes           bool
	dryRun        bool
	showUnchanged bool
	commit        bool
}

func newScanCmd(g *globalOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Classify gateway stubs and write the missing or stale ones",
		Long: `Scan files and directories for gateway files and write their .pyi stubs.

Explicitly named files are processed first, without the dynamic-import
indicator check, and are skipped by the directory scans that follow. Without
paths the scan root is scanned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, g, opts, args)
		},
	}

	addRootFlag(cmd, &opts.root)
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Write without asking")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().BoolVar(&opts.showUnchanged, "show-unchanged", false, "Also list stubs that are up to date")
	cmd.Flags().BoolVar(&opts.commit, "commit", false, "Commit written stubs (same as auto_commit = true)")
	return cmd
}

func runScan(cmd *cobra.Command, g *globalOptions, opts *scanOptions, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	root, err := resolveRoot(opts.root)
	if err != nil {
		return err
	}
	cfg, err := g.loadConfig(root)
	if err != nil {
		return err
	}

	report, err := g.runPipeline(ctx, cmd, cfg, root, args)
	if err != nil {
		return err
	}
	buckets := report.Merged()
	ui.PrintBuckets(out, buckets, ui.ReportOptions{
		Root:          root,
		ShowUnchanged: opts.showUnchanged || g.verbosity > 0,
	})

	var confirmer writer.Confirmer = writer.NewPromptConfirmer()
	if opts.yes {
		confirmer = writer.AlwaysConfirm{}
	}
	w := writer.New(root,
		writer.WithDryRun(opts.dryRun),
		writer.WithConfirmer(confirmer),
		writer.WithLogger(g.logger),
	)
	res, writeErr := w.Apply(ctx, buckets)

	switch {
	case res.Pending == 0:
	case res.DryRun:
		fmt.Fprintf(out, "Dry run: %d stub(s) would be written\n", res.Pending)
	case res.Declined:
		fmt.Fprintln(out, "Nothing written")
	default:
		fmt.Fprintf(out, "Wrote %d of %d stub(s)\n", len(res.Written), res.Pending)
	}

	if !opts.dryRun {
		recordHistory(cmd, g, cfg, root, report, buckets, len(res.Written) > 0)
	}

	if (cfg.AutoCommit || opts.commit) && len(res.Written) > 0 {
		commit, err := vcs.Commit(root, res.Written, cfg.CommitMessage)
		switch {
		case err != nil:
			g.logger.Warn("auto-commit failed", zap.Error(err))
		case commit.Clean():
			fmt.Fprintln(out, "Nothing to commit")
		default:
			fmt.Fprintf(out, "Committed %d stub(s) as %s\n", commit.Files, shortHash(commit.Hash))
		}
	}

	if writeErr != nil {
		return errors.Wrap(writeErr, "failed to write stubs")
	}
	return nil
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	var root string
	var showUnchanged bool

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Exit with status 1 when any stub would be created or overwritten",
		RunE: func(cmd *cobra.Command, args []string) error {
			absRoot, err := resolveRoot(root)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig(absRoot)
			if err != nil {
				return err
			}

			report, err := g.runPipeline(cmd.Context(), cmd, cfg, absRoot, args)
			if err != nil {
				return err
			}
			buckets := report.Merged()
			ui.PrintBuckets(cmd.OutOrStdout(), buckets, ui.ReportOptions{
				Root:          absRoot,
				ShowUnchanged: showUnchanged || g.verbosity > 0,
			})

			if buckets.Changed() {
				return &exitError{
					code: 1,
					msg:  fmt.Sprintf("%d stub(s) out of date", len(buckets.Pending())),
				}
			}
			return nil
		},
	}

	addRootFlag(cmd, &root)
	cmd.Flags().BoolVar(&showUnchanged, "show-unchanged", false, "Also list stubs that are up to date")
	return cmd
}

// recordHistory stores a run; failures are logged and never fail the command
func recordHistory(cmd *cobra.Command, g *globalOptions, cfg *config.Config, root string, report *indexer.Report, buckets types.Buckets, applied bool) {
	store, err := g.openHistory(cfg)
	if err != nil {
		g.logger.Warn("failed to record run", zap.Error(err))
		return
	}
	if store == nil {
		return
	}
	defer func() { _ = store.Close() }()

	run, err := storage.RecordRun(cmd.Context(), store, root, report.StartedAt, report.FinishedAt, buckets, applied)
	if err != nil {
		g.logger.Warn("failed to record run", zap.Error(err))
		return
	}
	g.logger.Info("recorded run", zap.Int64("run_id", run.ID), zap.String("path", root))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
