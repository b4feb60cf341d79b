package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// Printer writes status lines and tables, colouring them when the writer is
// a terminal.
type Printer struct {
	w        io.Writer
	colorize bool
}

// NewPrinter creates a printer for w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, colorize: isTerminal(w)}
}

func (p *Printer) line(color, mark, message string) {
	if p.colorize {
		fmt.Fprintf(p.w, "%s%s%s %s\n", color, mark, ColorReset, message)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", mark, message)
}

// Success prints a success message
func (p *Printer) Success(format string, args ...any) {
	p.line(ColorGreen, "✓", fmt.Sprintf(format, args...))
}

// Error prints an error message
func (p *Printer) Error(format string, args ...any) {
	p.line(ColorRed, "✗", fmt.Sprintf(format, args...))
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...any) {
	p.line(ColorYellow, "⚠", fmt.Sprintf(format, args...))
}

// Info prints an info message
func (p *Printer) Info(format string, args ...any) {
	p.line(ColorBlue, "ℹ", fmt.Sprintf(format, args...))
}

// Table prints rows aligned under a header.
func (p *Printer) Table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	head := strings.Join(header, "\t")
	if p.colorize {
		head = ColorBold + head + ColorReset
	}
	fmt.Fprintln(tw, head)
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

// Spinner shows progress for a long-running step such as a migration.
type Spinner struct {
	frames   []string
	current  int
	prefix   string
	mu       sync.Mutex
	printer  *Printer
	active   bool
	started  time.Time
	done     chan struct{}
	finished chan struct{}
}

// NewSpinner creates a spinner that renders through p. Spinners on a
// non-terminal writer stay silent until Success or Fail.
func (p *Printer) NewSpinner(prefix string) *Spinner {
	return &Spinner{
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		prefix:  prefix,
		printer: p,
	}
}

// Start starts the spinner
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.started = time.Now()
	if !s.printer.colorize {
		return
	}
	s.done = make(chan struct{})
	s.finished = make(chan struct{})

	go func() {
		defer close(s.finished)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.printer.w, "\r%s%s%s %s", ColorCyan, s.frames[s.current], ColorReset, s.prefix)
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

func (s *Spinner) stop() time.Duration {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return 0
	}
	s.active = false
	done, finished := s.done, s.finished
	elapsed := time.Since(s.started)
	s.mu.Unlock()

	if done != nil {
		close(done)
		<-finished
		fmt.Fprint(s.printer.w, "\r"+strings.Repeat(" ", 80)+"\r")
	}
	return elapsed
}

// Success stops the spinner and shows a success message with the elapsed time.
func (s *Spinner) Success(message string) {
	elapsed := s.stop()
	s.printer.Success("%s (%s)", message, formatDuration(elapsed))
}

// Fail stops the spinner and shows an error message.
func (s *Spinner) Fail(message string) {
	s.stop()
	s.printer.Error("%s", message)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
