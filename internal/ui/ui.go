// Package ui renders console output for the tracedeck CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[94m"
	cyan   = "\033[36m"
	grey   = "\033[90m"
)

// Printer writes styled lines to w. Colour is only emitted when enabled.
type Printer struct {
	w     io.Writer
	color bool
}

// New returns a Printer that colours output when w is a terminal and
// NO_COLOR is unset.
func New(w io.Writer) *Printer {
	return &Printer{w: w, color: colorable(w)}
}

// NewPlain returns a Printer that never colours output.
func NewPlain(w io.Writer) *Printer {
	return &Printer{w: w}
}

func colorable(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) paint(s string, codes ...string) string {
	if !p.color || len(codes) == 0 {
		return s
	}
	return strings.Join(codes, "") + s + reset
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, s)
}

// Header prints the application banner.
func (p *Printer) Header(name, version string) {
	p.println("")
	p.println(p.paint(name, bold, cyan) + " " + p.paint("v"+version, grey))
	p.println(p.paint(strings.Repeat("=", 60), cyan))
	p.println("")
}

// Section prints an underlined top-level title.
func (p *Printer) Section(title string) {
	p.println("")
	p.println(p.paint(title, bold, cyan))
	p.println(p.paint(strings.Repeat("-", runewidth.StringWidth(title)), cyan))
}

// Subsection prints an indented underlined title.
func (p *Printer) Subsection(title string) {
	p.println("")
	p.println("  " + p.paint(title, bold))
	p.println("  " + strings.Repeat("-", runewidth.StringWidth(title)))
}

func (p *Printer) Success(msg string) { p.println("  [+] " + p.paint(msg, green)) }
func (p *Printer) Error(msg string)   { p.println("  [-] " + p.paint(msg, red)) }
func (p *Printer) Warning(msg string) { p.println("  [!] " + p.paint(msg, yellow)) }
func (p *Printer) Info(msg string)    { p.println("  [*] " + p.paint(msg, blue)) }
func (p *Printer) Verbose(msg string) { p.println("  [>] " + p.paint(msg, grey)) }

// Pair prints one aligned key/value line.
func (p *Printer) Pair(key, value string) {
	p.println("  " + p.paint(runewidth.FillRight(key+":", 25), grey) + " " + value)
}

// ListItems prints name/description lines.
func (p *Printer) ListItems(items [][2]string) {
	for _, it := range items {
		p.println("  " + p.paint(runewidth.FillRight(it[0], 20), bold) + " " + p.paint(it[1], grey))
	}
}

// Rule prints a horizontal separator.
func (p *Printer) Rule() {
	p.println("  " + p.paint(strings.Repeat("-", 70), grey))
}

// Table collects rows and prints them with aligned columns. Column widths
// are measured in terminal cells.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

const minColumnWidth = 15

func NewTable(headers ...string) *Table {
	t := &Table{headers: headers, widths: make([]int, len(headers))}
	for i, h := range headers {
		t.widths[i] = max(runewidth.StringWidth(h), minColumnWidth)
	}
	return t
}

// AddRow appends a row. Cells beyond the header count are ignored.
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	for i, c := range cells {
		t.widths[i] = max(t.widths[i], runewidth.StringWidth(c))
	}
	t.rows = append(t.rows, cells)
}

// Print renders the table through p.
func (t *Table) Print(p *Printer) {
	var b strings.Builder
	line := func(cells []string, header bool) {
		b.Reset()
		b.WriteString("  ")
		for i, w := range t.widths {
			c := ""
			if i < len(cells) {
				c = cells[i]
			}
			padded := runewidth.FillRight(c, w+2)
			if header {
				padded = p.paint(padded, bold)
			}
			b.WriteString(padded)
		}
		p.println(strings.TrimRight(b.String(), " "))
	}

	p.println("")
	line(t.headers, true)
	total := 0
	for _, w := range t.widths {
		total += w + 2
	}
	p.println("  " + strings.Repeat("-", total))
	for _, r := range t.rows {
		line(r, false)
	}
	p.println("")
}

// ProgressBar redraws a single line as work completes.
type ProgressBar struct {
	p       *Printer
	total   int
	current int
	width   int
}

func NewProgressBar(p *Printer, total int) *ProgressBar {
	return &ProgressBar{p: p, total: total, width: 40}
}

// Update redraws the bar at current.
func (b *ProgressBar) Update(current int) {
	b.current = min(max(current, 0), b.total)
	filled, percent := b.width, 100
	if b.total > 0 {
		filled = b.current * b.width / b.total
		percent = b.current * 100 / b.total
	}
	fmt.Fprintf(b.p.w, "\r  [%s%s] %d%%",
		b.p.paint(strings.Repeat("=", filled), bold, cyan),
		strings.Repeat(" ", b.width-filled),
		percent)
}

// Finish ends the bar's line.
func (b *ProgressBar) Finish() {
	fmt.Fprintln(b.p.w)
}

// FormatSize renders a byte count in binary units, e.g. "1.5 MiB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatDuration renders d as "850 ms", "2.40 s" or "3 m 5 s".
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	switch {
	case ms < 1000:
		return fmt.Sprintf("%d ms", ms)
	case ms < 60_000:
		return fmt.Sprintf("%.2f s", float64(ms)/1000)
	default:
		secs := ms / 1000
		return fmt.Sprintf("%d m %d s", secs/60, secs%60)
	}
}
