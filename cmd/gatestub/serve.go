package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/internal/mcp"
	"github.com/dshills/gatestub/internal/vcs"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Each tool call loads the configuration of the directory it names. The
history settings of the --root configuration decide where runs are kept.
Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			absRoot, err := resolveRoot(root)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig(absRoot)
			if err != nil {
				return err
			}
			store, err := g.openHistory(cfg)
			if err != nil {
				return err
			}

			opts := mcp.Options{
				ConfigFile: g.configFile,
				Workers:    g.workers,
				Submodules: vcs.Submodules,
				Logger:     g.logger,
				Version:    version,
			}
			if store != nil {
				defer func() { _ = store.Close() }()
				opts.Storage = store
			}

			srv, err := mcp.NewServer(opts)
			if err != nil {
				return err
			}
			g.logger.Info("MCP server starting",
				zap.String("version", version),
				zap.Bool("history", store != nil))
			return srv.Serve(cmd.Context())
		},
	}

	addRootFlag(cmd, &root)
	return cmd
}
