// Package output renders CLI results with optional color.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// Color palette.
const (
	ColorAccent = "154"
	ColorGray   = "245"
	ColorRed    = "196"
	ColorYellow = "220"
)

// Styles holds the text styles used by Writer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Dim:     lipgloss.NewStyle().Faint(true),
	}
}

// NoColorStyles returns unstyled components for plain output.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Header: plain, Success: plain, Warning: plain, Error: plain, Label: plain, Dim: plain}
}

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer that uses color only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return NewWithColor(out, IsTerminal(out) && !DetectNoColor())
}

// NewWithColor creates a Writer with color explicitly on or off.
func NewWithColor(out io.Writer, color bool) *Writer {
	styles := NoColorStyles()
	if color {
		styles = DefaultStyles()
	}
	return &Writer{out: out, styles: styles}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Header prints a bold section title.
func (w *Writer) Header(title string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(title))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Hit is one search result row.
type Hit struct {
	ID      string
	Fields  map[string]any
	Trashed bool
}

// Hits prints one line per hit: the id followed by its fields in key order.
func (w *Writer) Hits(hits []Hit) {
	if len(hits) == 0 {
		_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render("(no results)"))
		return
	}
	for _, h := range hits {
		var b strings.Builder
		b.WriteString(w.styles.Header.Render(h.ID))
		if h.Trashed {
			b.WriteString(" " + w.styles.Warning.Render("[trashed]"))
		}
		for _, k := range sortedKeys(h.Fields) {
			fmt.Fprintf(&b, " %s=%v", w.styles.Label.Render(k), h.Fields[k])
		}
		_, _ = fmt.Fprintln(w.out, b.String())
	}
}

// Facets prints each facet field with its values by descending count.
func (w *Writer) Facets(f scout.Facets) {
	if len(f) == 0 {
		_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render("(no facets)"))
		return
	}
	for _, field := range sortedKeys(f) {
		w.Header(field)
		counts := f[field]
		values := sortedKeys(counts)
		slices.SortStableFunc(values, func(a, b string) int {
			return counts[b] - counts[a]
		})
		width := 0
		for _, v := range values {
			width = max(width, lipgloss.Width(v))
		}
		for _, v := range values {
			_, _ = fmt.Fprintf(w.out, "  %-*s %s\n", width, v, w.styles.Label.Render(fmt.Sprint(counts[v])))
		}
	}
}

// PageSummary prints "Showing from-to of total (page x/y)".
func (w *Writer) PageSummary(from, to, total, page, lastPage int) {
	var msg string
	if total == 0 {
		msg = "No matches"
	} else {
		msg = fmt.Sprintf("Showing %d-%d of %d (page %d/%d)", from, to, total, page, lastPage)
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(msg))
}

// KeyValues prints aligned label/value pairs in the given order.
func (w *Writer) KeyValues(pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}
	for _, p := range pairs {
		label := fmt.Sprintf("%-*s", width, p[0])
		_, _ = fmt.Fprintf(w.out, "  %s  %s\n", w.styles.Label.Render(label), p[1])
	}
}

// Lines prints each line as is.
func (w *Writer) Lines(lines []string) {
	for _, l := range lines {
		_, _ = fmt.Fprintln(w.out, l)
	}
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
