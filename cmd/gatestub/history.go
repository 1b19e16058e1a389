package main

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dshills/gatestub/internal/config"
	"github.com/dshills/gatestub/internal/searcher"
	"github.com/dshills/gatestub/internal/storage"
	"github.com/dshills/gatestub/internal/ui"
)

// requireHistory opens the history store and fails when history is off
func (g *globalOptions) requireHistory(cfg *config.Config) (storage.Storage, error) {
	store, err := g.openHistory(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.WithHint(
			errors.New("run history is disabled"),
			"drop --no-history or set history.enabled = true",
		)
	}
	return store, nil
}

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var (
		root  string
		limit int
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scans of the scan root",
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
			store, err := g.requireHistory(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if prune > 0 {
				n, err := store.DeleteRunsBefore(ctx, absRoot, time.Now().Add(-prune))
				if err != nil {
					return errors.Wrap(err, "failed to prune history")
				}
				fmt.Fprintf(out, "Pruned %d run(s) older than %s\n", n, prune)
			}

			runs, err := store.ListRuns(ctx, absRoot, limit)
			if err != nil {
				return errors.Wrap(err, "failed to list runs")
			}
			return ui.PrintRuns(out, runs)
		},
	}

	addRootFlag(cmd, &root)
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete runs older than this (e.g. 720h) before listing")
	return cmd
}

func newWhichCmd(g *globalOptions) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "which <symbol>",
		Short: "Show which gateways export a symbol, from the latest recorded scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absRoot, err := resolveRoot(root)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig(absRoot)
			if err != nil {
				return err
			}
			store, err := g.requireHistory(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			resp, err := searcher.New(store, 0).FindSymbol(cmd.Context(), absRoot, args[0])
			if errors.Is(err, searcher.ErrNoHistory) {
				return errors.WithHint(err, "run 'gatestub scan' first")
			}
			if err != nil {
				return err
			}

			ui.PrintMatches(cmd.OutOrStdout(), resp)
			if len(resp.Matches) == 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%s is not exported by any gateway", resp.Symbol)}
			}
			return nil
		},
	}

	addRootFlag(cmd, &root)
	return cmd
}
