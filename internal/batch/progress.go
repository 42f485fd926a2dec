package batch

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Progress receives the processed count after every file.
type Progress interface {
	Update(done, total int)
}

type nopProgress struct{}

func (nopProgress) Update(int, int) {}

const barWidth = 30

// TerminalProgress draws a single-line progress bar. It draws nothing
// when its output is not a terminal.
//
// It is also an io.Writer: log output routed through it erases the bar,
// writes the line and redraws the bar below it.
type TerminalProgress struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	drawn   bool

	done, total int
}

// NewTerminalProgress returns a progress bar on f, enabled only when f is
// a terminal.
func NewTerminalProgress(f *os.File) *TerminalProgress {
	fd := f.Fd()
	return &TerminalProgress{
		w:       f,
		enabled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// Update redraws the bar.
func (p *TerminalProgress) Update(done, total int) {
	if !p.enabled || total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done, p.total = done, total
	p.draw()
}

func (p *TerminalProgress) draw() {
	filled := p.done * barWidth / p.total
	pct := float64(p.done) / float64(p.total) * 100
	_, _ = fmt.Fprintf(p.w, "\r  [%s%s] %d/%d (%.0f%%)",
		strings.Repeat("#", filled),
		strings.Repeat(".", barWidth-filled),
		p.done, p.total, pct)
	p.drawn = true
}

// Write passes b through to the underlying output, clearing the bar first
// and redrawing it afterwards if one is on screen.
func (p *TerminalProgress) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.drawn {
		return p.w.Write(b)
	}
	// Carriage return plus erase-to-end-of-line.
	if _, err := io.WriteString(p.w, "\r\x1b[K"); err != nil {
		return 0, err
	}
	n, err := p.w.Write(b)
	if err != nil {
		return n, err
	}
	p.draw()
	return n, nil
}

// Done ends the progress line if one was drawn.
func (p *TerminalProgress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		_, _ = fmt.Fprintln(p.w)
		p.drawn = false
	}
}
