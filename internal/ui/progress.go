// Package ui renders progress and reports for the command line tool.
package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/dshills/gatestub/pkg/types"
)

// ProgressBar reports gateway tasks on a terminal. It satisfies
// indexer.Progress; each Start begins a new bar.
type ProgressBar struct {
	output io.Writer
	label  string

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a progress reporter writing to output
func NewProgressBar(output io.Writer, label string) *ProgressBar {
	return &ProgressBar{output: output, label: label}
}

// Start begins a bar of total gateways
func (p *ProgressBar) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.output),
		progressbar.OptionSetDescription(fmt.Sprintf("[%s]", p.label)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
}

// Step advances the bar by one gateway
func (p *ProgressBar) Step(gw types.GatewayFile) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("[%s] %s", p.label, gw.RelPath))
	_ = p.bar.Add(1)
}

// Finish completes and clears the bar
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
