package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/internal/ui"
	"github.com/dshills/gatestub/internal/watch"
	"github.com/dshills/gatestub/internal/writer"
)

func newWatchCmd(g *globalOptions) *cobra.Command {
	var (
		root     string
		write    bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-scan whenever Python sources below the scan root change",
		Long: `Watch the scan root and re-run the scan after each batch of changes.

Without --write only the classification is reported. With --write new and
stale stubs are written without asking, and each run is recorded in history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			absRoot, err := resolveRoot(root)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig(absRoot)
			if err != nil {
				return err
			}

			rerun := func(ctx context.Context) error {
				report, err := g.runPipeline(ctx, cmd, cfg, absRoot, args)
				if err != nil {
					return err
				}
				buckets := report.Merged()
				fmt.Fprintf(out, "[%s] %s\n", report.FinishedAt.Format("15:04:05"), ui.Summary(buckets))
				ui.PrintBuckets(out, buckets, ui.ReportOptions{Root: absRoot})

				w := writer.New(absRoot,
					writer.WithDryRun(!write),
					writer.WithConfirmer(writer.AlwaysConfirm{}),
					writer.WithLogger(g.logger),
				)
				res, err := w.Apply(ctx, buckets)
				if write {
					recordHistory(cmd, g, cfg, absRoot, report, buckets, len(res.Written) > 0)
				}
				if err != nil {
					return errors.Wrap(err, "failed to write stubs")
				}
				return nil
			}

			watcher, err := watch.New(absRoot, cfg.Ignore,
				watch.WithDebounce(debounce),
				watch.WithLogger(g.logger),
			)
			if err != nil {
				return err
			}
			defer func() { _ = watcher.Close() }()

			if err := rerun(ctx); err != nil {
				g.logger.Warn("initial scan failed", zap.Error(err))
			}
			fmt.Fprintf(out, "Watching %d director(ies) below %s, press Ctrl+C to stop\n", len(watcher.Watched()), absRoot)
			return watcher.Run(ctx, rerun)
		},
	}

	addRootFlag(cmd, &root)
	cmd.Flags().BoolVar(&write, "write", false, "Write new and stale stubs without asking")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a re-run")
	return cmd
}
