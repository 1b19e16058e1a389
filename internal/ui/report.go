package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/dshills/gatestub/internal/searcher"
	"github.com/dshills/gatestub/internal/storage"
	"github.com/dshills/gatestub/pkg/types"
)

var (
	createColor    = color.New(color.FgGreen, color.Bold)
	overwriteColor = color.New(color.FgYellow, color.Bold)
	unchangedColor = color.New(color.Faint)
	summaryColor   = color.New(color.Bold)
)

// ReportOptions controls PrintBuckets
type ReportOptions struct {
	Root          string // Paths are printed relative to Root when set
	ShowUnchanged bool
}

// PrintBuckets prints one line per stub followed by a summary line
func PrintBuckets(w io.Writer, b types.Buckets, opts ReportOptions) {
	for _, r := range b.Create {
		printResult(w, createColor, r, opts.Root)
	}
	for _, r := range b.Overwrite {
		printResult(w, overwriteColor, r, opts.Root)
	}
	if opts.ShowUnchanged {
		for _, r := range b.Unchanged {
			printResult(w, unchangedColor, r, opts.Root)
		}
	}
	fmt.Fprintln(w, Summary(b))
}

func printResult(w io.Writer, c *color.Color, r types.StubResult, root string) {
	label := c.Sprintf("%-9s", r.Bucket)
	fmt.Fprintf(w, "%s  %s (%s)\n", label, displayPath(root, r.StubPath), pluralize(r.SymbolCount, "symbol"))
}

// Summary returns the one-line count of each bucket
func Summary(b types.Buckets) string {
	return summaryColor.Sprintf("%d to create, %d to overwrite, %d unchanged",
		len(b.Create), len(b.Overwrite), len(b.Unchanged))
}

// PrintRuns prints recorded runs as a table, newest first
func PrintRuns(w io.Writer, runs []*storage.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs")
		return nil
	}

	data := pterm.TableData{{"ID", "Finished", "Duration", "Created", "Overwritten", "Unchanged", "Applied"}}
	for _, run := range runs {
		data = append(data, []string{
			strconv.FormatInt(run.ID, 10),
			run.FinishedAt.Local().Format(time.DateTime),
			run.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(run.Created),
			strconv.Itoa(run.Overwritten),
			strconv.Itoa(run.Unchanged),
			strconv.FormatBool(run.Applied),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

// PrintMatches prints the gateways exporting a symbol
func PrintMatches(w io.Writer, resp *searcher.SymbolResponse) {
	if len(resp.Matches) == 0 {
		fmt.Fprintf(w, "%s is not exported by any gateway (run %d)\n", resp.Symbol, resp.RunID)
		return
	}
	fmt.Fprintf(w, "%s is exported by %s (run %d):\n",
		resp.Symbol, pluralize(len(resp.Matches), "gateway"), resp.RunID)
	for _, m := range resp.Matches {
		fmt.Fprintf(w, "  %s\n", displayPath(resp.Root, m.InitPath))
	}
}

func displayPath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
