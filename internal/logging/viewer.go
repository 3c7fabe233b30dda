package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// maxLineSize bounds a single log line when scanning.
const maxLineSize = 1024 * 1024

// LogEntry represents a parsed JSON log line.
type LogEntry struct {
	Time    time.Time
	Level   string
	Msg     string
	Attrs   map[string]any
	Raw     string // Original line
	IsValid bool   // Whether JSON parsing succeeded
}

// ViewerConfig configures the log viewer.
type ViewerConfig struct {
	Level   string         // Minimum level to show
	Pattern *regexp.Regexp // Only lines matching Pattern
	Model   string         // Only entries whose model attribute matches
	NoColor bool
}

// Viewer tails and filters solrscout debug logs.
type Viewer struct {
	config ViewerConfig
	out    io.Writer
	styles map[string]lipgloss.Style
	attr   lipgloss.Style
}

// NewViewer creates a new log viewer.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	return &Viewer{
		config: cfg,
		out:    out,
		styles: map[string]lipgloss.Style{
			"debug": lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
			"info":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
			"warn":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
			"error": lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
		attr: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Tail reads the last n lines from a log file and returns matching entries.
func (v *Viewer) Tail(path string, n int) ([]LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	var entries []LogEntry
	for _, line := range lines {
		entry := v.parseLine(line)
		if v.matchesFilter(entry) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Follow sends entries appended to path until ctx is cancelled.
func (v *Viewer) Follow(ctx context.Context, path string, entries chan<- LogEntry) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	reader := bufio.NewReader(file)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				chunk, err := reader.ReadString('\n')
				partial += chunk
				if err != nil {
					break
				}

				line := strings.TrimSuffix(partial, "\n")
				partial = ""
				if line == "" {
					continue
				}

				entry := v.parseLine(line)
				if !v.matchesFilter(entry) {
					continue
				}
				select {
				case entries <- entry:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// FormatEntry formats a log entry for display. Attributes are sorted by key.
func (v *Viewer) FormatEntry(entry LogEntry) string {
	if !entry.IsValid {
		return entry.Raw
	}

	keys := make([]string, 0, len(entry.Attrs))
	for k := range entry.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(entry.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(v.formatLevel(entry.Level))
	b.WriteByte(' ')
	b.WriteString(entry.Msg)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(v.render(v.attr, k))
		b.WriteString(fmt.Sprintf("=%v", entry.Attrs[k]))
	}
	return b.String()
}

// Print prints entries to the output.
func (v *Viewer) Print(entries []LogEntry) {
	for _, entry := range entries {
		_, _ = fmt.Fprintln(v.out, v.FormatEntry(entry))
	}
}

func (v *Viewer) parseLine(line string) LogEntry {
	entry := LogEntry{Raw: line}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return entry
	}
	entry.IsValid = true

	if t, ok := data["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			entry.Time = parsed
		}
	}
	entry.Level, _ = data["level"].(string)
	entry.Msg, _ = data["msg"].(string)

	delete(data, "time")
	delete(data, "level")
	delete(data, "msg")
	entry.Attrs = data

	return entry
}

func (v *Viewer) matchesFilter(entry LogEntry) bool {
	if v.config.Level != "" && LevelFromString(entry.Level) < LevelFromString(v.config.Level) {
		return false
	}
	if v.config.Pattern != nil && !v.config.Pattern.MatchString(entry.Raw) {
		return false
	}
	if v.config.Model != "" {
		if m, _ := entry.Attrs["model"].(string); m != v.config.Model {
			return false
		}
	}
	return true
}

func (v *Viewer) formatLevel(level string) string {
	label := strings.ToUpper(level)
	if len(label) > 5 {
		label = label[:5]
	}
	label = fmt.Sprintf("%-5s", label)

	style, ok := v.styles[strings.ToLower(level)]
	if !ok {
		return label
	}
	return v.render(style, label)
}

func (v *Viewer) render(style lipgloss.Style, s string) string {
	if v.config.NoColor {
		return s
	}
	return style.Render(s)
}
