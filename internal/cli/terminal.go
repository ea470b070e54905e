package cli

import (
	"io"
	"log/slog"

	"golang.org/x/term"
)

// TerminalDetector reports whether a file descriptor is a terminal.
type TerminalDetector interface {
	IsTerminal(fd int) bool
}

// DefaultTerminalDetector uses golang.org/x/term.
type DefaultTerminalDetector struct{}

// IsTerminal implements TerminalDetector.
func (d *DefaultTerminalDetector) IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

type fdWriter interface {
	Fd() uintptr
}

// writesToTerminal reports whether w is a file attached to a terminal.
// Writers without a descriptor, such as buffers, never are.
func (c *CLI) writesToTerminal(w io.Writer) bool {
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}
	isTerminal := c.terminalDetector.IsTerminal(int(f.Fd()))
	slog.Debug("terminal detection result", "fd", f.Fd(), "is_terminal", isTerminal)
	return isTerminal
}
