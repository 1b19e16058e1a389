package writer

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// Confirmer asks whether pending stubs may be written
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// AlwaysConfirm approves every prompt. Used for --yes and watch --write.
type AlwaysConfirm struct{}

// Confirm implements Confirmer
func (AlwaysConfirm) Confirm(string) (bool, error) {
	return true, nil
}

// PromptConfirmer asks on the terminal. Without an interactive stdin the
// answer is "no".
type PromptConfirmer struct {
	in *os.File
}

// NewPromptConfirmer creates a PromptConfirmer reading from os.Stdin
func NewPromptConfirmer() *PromptConfirmer {
	return &PromptConfirmer{in: os.Stdin}
}

// Interactive reports whether the input is a terminal
func (c *PromptConfirmer) Interactive() bool {
	if c.in == nil {
		return false
	}
	fd := c.in.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Confirm implements Confirmer
func (c *PromptConfirmer) Confirm(prompt string) (bool, error) {
	if !c.Interactive() {
		return false, nil
	}
	return pterm.DefaultInteractiveConfirm.
		WithDefaultValue(false).
		Show(prompt)
}
