package lint

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleValid = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func levelGlyph(l Level) string {
	switch l {
	case LevelValid:
		return styleValid.Render("✓ valid")
	case LevelInfo:
		return styleInfo.Render("• info ")
	case LevelWarn:
		return styleWarn.Render("⚠ warn ")
	case LevelError:
		return styleError.Render("✗ error")
	}
	return l.String()
}

// Report writes messages at or above min to w, one finding per line, with
// the anchor path on a continuation line when known.
func (c *Context) Report(w io.Writer, min Level) {
	for _, m := range c.Messages {
		if m.Level < min {
			continue
		}
		fmt.Fprintf(w, "  %s [%s] %s\n", levelGlyph(m.Level), m.Linter, m.Text)
		if p := m.XPath(); p != "" {
			fmt.Fprintf(w, "           at: %s\n", p)
		}
	}
}

// ReportJSON writes messages at or above min to w as an indented JSON array.
func (c *Context) ReportJSON(w io.Writer, min Level) error {
	out := []Message{}
	for _, m := range c.Messages {
		if m.Level < min {
			continue
		}
		out = append(out, m)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
