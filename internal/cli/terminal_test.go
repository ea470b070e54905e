package cli

import (
	"bytes"
	"testing"
)

type countingDetector struct {
	calls    int
	lastFd   int
	terminal bool
}

func (d *countingDetector) IsTerminal(fd int) bool {
	d.calls++
	d.lastFd = fd
	return d.terminal
}

func TestWritesToTerminalSkipsPlainWriters(t *testing.T) {
	detector := &countingDetector{terminal: true}
	c := NewCLI(WithTerminalDetector(detector))

	if c.writesToTerminal(&bytes.Buffer{}) {
		t.Error("expected a buffer never to be a terminal")
	}
	if detector.calls != 0 {
		t.Errorf("expected detector not to be consulted, got %d calls", detector.calls)
	}
}

func TestWritesToTerminalUsesDetector(t *testing.T) {
	for _, terminal := range []bool{true, false} {
		detector := &countingDetector{terminal: terminal}
		c := NewCLI(WithTerminalDetector(detector))

		if got := c.writesToTerminal(&ttyBuffer{}); got != terminal {
			t.Errorf("expected %v, got %v", terminal, got)
		}
		if detector.calls != 1 || detector.lastFd != 1 {
			t.Errorf("expected one call with fd 1, got %d calls with fd %d", detector.calls, detector.lastFd)
		}
	}
}

func TestDefaultTerminalDetectorInvalidFd(t *testing.T) {
	if (&DefaultTerminalDetector{}).IsTerminal(-1) {
		t.Error("expected invalid fd not to be a terminal")
	}
}
