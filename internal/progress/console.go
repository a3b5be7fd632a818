package progress

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"aaxconv/internal/scheduler"
)

const defaultWidth = 80

var spinnerFrames = [...]string{"—", "|"}

// Options configures a Console.
type Options struct {
	Quiet bool
	// Interactive forces in-place redraw regardless of terminal detection.
	Interactive bool
	// Width overrides the detected terminal width.
	Width int
}

// Console writes progress and messages to one stream. It is safe for
// concurrent use.
type Console struct {
	mu          sync.Mutex
	out         io.Writer
	quiet       bool
	interactive bool
	width       int
	fd          int

	frame        int
	last         *scheduler.Snapshot
	lineOnScreen bool
	finished     bool
}

var _ scheduler.Reporter = (*Console)(nil)

// New creates a Console writing to out.
func New(out io.Writer, opts Options) *Console {
	c := &Console{
		out:         out,
		quiet:       opts.Quiet,
		interactive: opts.Interactive,
		width:       opts.Width,
		fd:          -1,
	}
	if file, ok := out.(*os.File); ok {
		fd := file.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			c.interactive = true
			c.fd = int(fd)
		}
	}
	return c
}

// Progress draws the progress line for snap.
func (c *Console) Progress(snap scheduler.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quiet || c.finished {
		return
	}
	if !c.interactive && c.last != nil && c.last.Done == snap.Done && c.last.Total == snap.Total {
		return
	}
	c.last = &snap
	c.draw()
}

// Message prints text on its own line without tearing the progress line.
func (c *Console) Message(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quiet {
		return
	}
	if c.lineOnScreen {
		fmt.Fprintf(c.out, "%s\r", strings.Repeat(" ", c.termWidth()))
		c.lineOnScreen = false
	}
	fmt.Fprintln(c.out, text)
	if c.interactive && c.last != nil && !c.finished {
		c.draw()
	}
}

// Printf formats and prints a message.
func (c *Console) Printf(format string, args ...any) {
	c.Message(fmt.Sprintf(format, args...))
}

// Finish stops progress rendering and leaves the last progress line intact.
func (c *Console) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return
	}
	c.finished = true
	if c.lineOnScreen {
		fmt.Fprintln(c.out)
		c.lineOnScreen = false
	}
}

func (c *Console) draw() {
	width := c.termWidth()
	line := RenderLine(*c.last, width, spinnerFrames[c.frame%len(spinnerFrames)])
	c.frame++
	if c.interactive {
		fmt.Fprintf(c.out, "%-*s\r", width, line)
		c.lineOnScreen = true
		return
	}
	fmt.Fprintln(c.out, line)
}

func (c *Console) termWidth() int {
	if c.width > 0 {
		return c.width
	}
	if c.fd >= 0 {
		if w, _, err := term.GetSize(c.fd); err == nil && w > 0 {
			return w
		}
	}
	return defaultWidth
}

// RenderLine formats "Progress: done/total [bar] pct%". The bar is a quarter
// of the terminal width and ends in the spinner frame.
func RenderLine(snap scheduler.Snapshot, termWidth int, spinner string) string {
	barWidth := int(math.Round(float64(termWidth) / 4))
	if barWidth < 1 {
		barWidth = 1
	}
	percent := snap.Fraction() * 100
	filled := int(percent/100*float64(barWidth) - 1)
	filled = max(0, min(filled, barWidth-1))
	bar := strings.Repeat("|", filled) + spinner
	bar += strings.Repeat("—", max(0, barWidth-filled-1))
	return fmt.Sprintf("Progress: %d/%d [%s] %.2f%%", snap.Done, snap.Total, bar, percent)
}
