// Package output renders build progress to the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Printer formats and writes pipeline progress.
type Printer struct {
	Writer  io.Writer
	Color   bool
	Verbose bool
}

// NewPrinter creates a printer writing to stdout with color auto-detection.
func NewPrinter(verbose bool) *Printer {
	return &Printer{
		Writer:  os.Stdout,
		Color:   UseColor(),
		Verbose: verbose,
	}
}

// Step prints one aligned "label → detail" line.
func (p *Printer) Step(label, format string, args ...any) {
	detail := fmt.Sprintf(format, args...)
	fmt.Fprintf(p.Writer, "  %-18s→ %s\n", label, detail)
}

// Hit prints a cache-hit line for a stage.
func (p *Printer) Hit(stage, key string) {
	fmt.Fprintf(p.Writer, "  %-18s→ %s %s\n", stage, p.colorize("cached", colorGreen), p.colorize(short(key), colorGray))
}

// Built prints a cache-miss (freshly built) line for a stage.
func (p *Printer) Built(stage, key string) {
	fmt.Fprintf(p.Writer, "  %-18s→ %s %s\n", stage, "built", p.colorize(short(key), colorGray))
}

// Successf prints a final success line.
func (p *Printer) Successf(format string, args ...any) {
	icon := "✓"
	if p.Color {
		icon = colorGreen + "✓" + colorReset
	}
	fmt.Fprintf(p.Writer, "%s %s\n", icon, fmt.Sprintf(format, args...))
}

// Warnf prints a warning line.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintf(p.Writer, "%s %s\n", p.colorize("warning:", colorYellow), fmt.Sprintf(format, args...))
}

// Errorf prints an error line to stderr.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", p.colorize("error:", colorRed), fmt.Sprintf(format, args...))
}

// Debugf prints a diagnostic line when verbose is on.
func (p *Printer) Debugf(format string, args ...any) {
	if !p.Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "%s\n", p.colorize(fmt.Sprintf(format, args...), colorGray))
}

// Header prints a bold section title.
func (p *Printer) Header(name string) {
	fmt.Fprintf(p.Writer, "\n%s\n", p.colorize(name, colorBold+colorCyan))
}

func (p *Printer) colorize(text, color string) string {
	if !p.Color {
		return text
	}
	return color + text + colorReset
}

// short truncates a cache key for display.
func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// IsCI reports whether we are running under a CI environment.
func IsCI() bool {
	return os.Getenv("CI") == "true"
}

// UseColor decides whether ANSI colors should be emitted.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if IsCI() {
		return true // CI log viewers render ANSI
	}
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0 &&
		!strings.EqualFold(os.Getenv("TERM"), "dumb")
}
