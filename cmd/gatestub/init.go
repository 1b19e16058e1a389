package main

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dshills/gatestub/internal/config"
)

func newInitCmd(g *globalOptions) *cobra.Command {
	var (
		root  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter gatestub.toml into the scan root",
		RunE: func(cmd *cobra.Command, args []string) error {
			absRoot, err := resolveRoot(root)
			if err != nil {
				return err
			}
			path := filepath.Join(absRoot, config.FileNames[0])

			if err := config.WriteStarter(path, force); err != nil {
				if errors.Is(err, config.ErrConfigExists) {
					return errors.WithHint(err, "pass --force to replace it")
				}
				return err
			}
			g.logger.Debug("wrote starter config")
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	addRootFlag(cmd, &root)
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
