// Package progress draws the scan spinner and the hashing bar on a terminal.
// Every type is a no-op when disabled or nil.
package progress

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// Enabled reports whether progress should be drawn to w.
func Enabled(noProgress bool, human bool, w io.Writer) bool {
	if noProgress || !human {
		return false
	}
	return IsTerminal(w)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type Spinner struct {
	spinner *pterm.SpinnerPrinter
}

func NewSpinner(enabled bool, text string, w io.Writer) *Spinner {
	if !enabled {
		return nil
	}

	s, err := pterm.DefaultSpinner.
		WithText(text).
		WithRemoveWhenDone(true).
		WithWriter(w).
		Start()
	if err != nil {
		return nil
	}
	return &Spinner{spinner: s}
}

func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	_ = s.spinner.Stop()
}

// Bar counts finished work items. Add is safe for concurrent use.
type Bar struct {
	mu  sync.Mutex
	bar *pterm.ProgressbarPrinter
}

func NewBar(enabled bool, title string, total int, w io.Writer) *Bar {
	if !enabled || total <= 0 {
		return nil
	}

	bar, err := pterm.DefaultProgressbar.
		WithTitle(title).
		WithTotal(total).
		WithRemoveWhenDone(true).
		WithWriter(w).
		Start()
	if err != nil {
		return nil
	}
	return &Bar{bar: bar}
}

func (b *Bar) Add(n int) {
	if b == nil || n <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if remaining := b.bar.Total - b.bar.Current; n > remaining {
		n = remaining
	}
	if n > 0 {
		b.bar.Add(n)
	}
}

func (b *Bar) Stop() {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = b.bar.Stop()
}
