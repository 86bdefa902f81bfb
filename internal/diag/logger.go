// Package diag renders human-readable diagnostics for analysis results.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Palette
var (
	ColorError   = lipgloss.Color("#FF5555")
	ColorWarning = lipgloss.Color("#FFC832")
	ColorText    = lipgloss.Color("#FFFFFF")
	ColorMuted   = lipgloss.Color("#808080")
)

const (
	badge  = " RESAFE "
	prefix = "[resafe] "
	gutter = "│"
)

// Property is a highlighted name=value pair printed after the message.
type Property struct {
	Name  string
	Value string

	// Emphasis renders the name in the level color instead of bold.
	Emphasis bool
}

// Details carries the optional parts of a diagnostic.
type Details struct {
	Property *Property
	Lines    []string
}

// Logger writes diagnostics and, when verbose, analysis traces. It is safe
// for concurrent use; every call reaches the writer as a single write.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	color   bool
	r       *lipgloss.Renderer
}

// Option configures a Logger.
type Option func(*Logger)

// WithVerbose enables Section and Log output.
func WithVerbose(enabled bool) Option {
	return func(l *Logger) { l.verbose = enabled }
}

// WithColor forces colored output on or off regardless of the writer.
func WithColor(enabled bool) Option {
	return func(l *Logger) { l.color = enabled }
}

// New creates a Logger writing to w. Colors are enabled when w is a terminal
// and NO_COLOR is not set.
func New(w io.Writer, opts ...Option) *Logger {
	l := &Logger{
		out:   w,
		color: isTerminal(w) && os.Getenv("NO_COLOR") == "",
	}
	for _, opt := range opts {
		opt(l)
	}

	l.r = lipgloss.NewRenderer(w)
	if l.color {
		l.r.SetColorProfile(termenv.TrueColor)
	} else {
		l.r.SetColorProfile(termenv.Ascii)
	}
	return l
}

// Default returns a Logger writing to stderr.
func Default() *Logger {
	return New(os.Stderr)
}

// Discard returns a Logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, WithColor(false))
}

// Verbose returns whether analysis traces are enabled.
func (l *Logger) Verbose() bool {
	return l.verbose
}

// Error prints a red diagnostic.
func (l *Logger) Error(msg string, d Details) {
	l.emit(ColorError, msg, d)
}

// Warn prints an amber diagnostic.
func (l *Logger) Warn(msg string, d Details) {
	l.emit(ColorWarning, msg, d)
}

// Log prints a formatted trace line if verbose mode is enabled.
func (l *Logger) Log(format string, args ...interface{}) {
	if l.verbose {
		l.write(fmt.Sprintf(prefix+format+"\n", args...))
	}
}

// Section prints a trace section header if verbose mode is enabled.
func (l *Logger) Section(name string) {
	if l.verbose {
		l.write(sectionHeader(name))
	}
}

// Block prints a section header followed by its trace lines in one write,
// so blocks from concurrent callers never interleave.
func (l *Logger) Block(name string, lines ...string) {
	if !l.verbose {
		return
	}
	var b strings.Builder
	b.WriteString(sectionHeader(name))
	for _, line := range lines {
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	l.write(b.String())
}

func sectionHeader(name string) string {
	return fmt.Sprintf("\n%s=== %s ===\n", prefix, name)
}

func (l *Logger) write(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, s)
}

func (l *Logger) emit(level lipgloss.TerminalColor, msg string, d Details) {
	text := l.r.NewStyle().Foreground(ColorText)

	var b strings.Builder
	b.WriteString(l.r.NewStyle().Bold(true).Foreground(ColorText).Background(level).Render(badge))
	b.WriteByte(' ')
	b.WriteString(text.Render(msg))

	if p := d.Property; p != nil {
		name := l.r.NewStyle().Bold(true)
		if p.Emphasis {
			name = l.r.NewStyle().Foreground(level)
		}
		b.WriteByte(' ')
		b.WriteString(name.Render(p.Name))
		b.WriteByte('=')
		b.WriteString(text.Render(p.Value))
	}
	b.WriteByte('\n')

	if len(d.Lines) > 0 {
		bar := l.r.NewStyle().Foreground(ColorMuted).Render(gutter)
		for _, line := range d.Lines {
			fmt.Fprintf(&b, "  %s %s\n", bar, text.Render(line))
		}
		b.WriteByte('\n')
	}

	l.write(b.String())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
