package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dshills/gatestub/internal/writer"
)

func newRenderCmd(g *globalOptions) *cobra.Command {
	var root string
	var withHeader bool

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Print the stub of one gateway file without writing it",
		Long: `Render the stub of a single gateway file to stdout.

The dynamic-import indicator check is skipped, as for files named on the
scan command line. With --header the output is exactly what scan would
write, including the provenance line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absRoot, err := resolveRoot(root)
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return errors.Wrapf(err, "failed to resolve %s", args[0])
			}
			info, err := os.Stat(path)
			if err != nil {
				return errors.WithHint(errors.Wrapf(err, "gateway %s", args[0]), "pass an existing Python file")
			}
			if info.IsDir() {
				return errors.WithHint(errors.Newf("%s is a directory", args[0]), "use 'gatestub scan' for directories")
			}

			cfg, err := g.loadConfig(absRoot)
			if err != nil {
				return err
			}
			idx, err := g.newIndexer(cfg, absRoot, nil)
			if err != nil {
				return err
			}

			result, ok := idx.Render(cmd.Context(), path)
			if !ok {
				return errors.WithHint(
					errors.Newf("%s produced no stub", args[0]),
					"the file failed to parse or exports no symbols; rerun with -vv for details",
				)
			}

			out := result.Body
			if withHeader {
				out = writer.Compose(writer.HeaderFor(absRoot, result), result.Body)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	addRootFlag(cmd, &root)
	cmd.Flags().BoolVar(&withHeader, "header", false, "Include the provenance header line")
	return cmd
}
