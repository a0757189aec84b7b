// Package help renders the key reference overlay from markdown.
package help

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/theme"
)

// Binding is one row of the key table.
type Binding struct {
	Keys string
	Desc string
}

type cache struct {
	width    int
	rendered string
}

// Model caches the rendered overlay per width. Copies share the cache.
type Model struct {
	Bindings []Binding

	cache *cache
}

// New creates a help overlay for the given bindings.
func New(bindings []Binding) Model {
	return Model{Bindings: bindings, cache: &cache{}}
}

// Markdown returns the source document.
func (m Model) Markdown() string {
	var b strings.Builder
	b.WriteString("# Remote browser\n\n")
	b.WriteString("Frames stream from the backend. Clicks on the preview are scaled to the page.\n\n")
	b.WriteString("| Key | Action |\n|---|---|\n")
	for _, k := range m.Bindings {
		b.WriteString("| `" + k.Keys + "` | " + k.Desc + " |\n")
	}
	return b.String()
}

// View renders the overlay. Rendering happens once per width.
func (m Model) View(width int) string {
	if width < 30 {
		width = 30
	}
	if m.cache == nil {
		m.cache = &cache{}
	}
	c := m.cache
	if c.rendered == "" || c.width != width {
		c.width = width
		c.rendered = render(m.Markdown(), width-6)
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(c.rendered)
}

func render(md string, wrap int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
