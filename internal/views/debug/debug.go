// Package debug is the console's event log overlay. Every entry records
// which kind of event produced it and the session generation it belongs
// to, so lines from a session replaced by ctrl+r stay distinguishable.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/theme"
)

const maxEntries = 200

// Kind classifies an event.
type Kind int

const (
	KindSocket Kind = iota
	KindCommand
	KindFrame
	KindError

	numKinds
)

// Kinds lists every kind in display order.
var Kinds = [numKinds]Kind{KindSocket, KindCommand, KindFrame, KindError}

func (k Kind) String() string {
	switch k {
	case KindSocket:
		return "ws"
	case KindCommand:
		return "cmd"
	case KindFrame:
		return "frm"
	case KindError:
		return "err"
	}
	return "?"
}

func (k Kind) color() lipgloss.Color {
	switch k {
	case KindSocket:
		return theme.ColorSocket
	case KindCommand:
		return theme.ColorCommand
	case KindFrame:
		return theme.ColorFrame
	case KindError:
		return theme.ColorError
	}
	return theme.ColorDimmed
}

// Entry is one logged event. Repeat counts identical events folded into it.
type Entry struct {
	Time    time.Time
	Kind    Kind
	Gen     int
	Message string
	Repeat  int
}

// Model is the event log. Hint is the key help line shown under it.
type Model struct {
	Hint string
	Now  func() time.Time

	entries []Entry
	gen     int
	hidden  [numKinds]bool
	counts  [numKinds]int
	offset  int // visible entries hidden below the bottom edge
}

// New returns an empty log for generation 1.
func New() Model {
	return Model{Now: time.Now, gen: 1}
}

// SetGeneration stamps later entries with gen.
func (m *Model) SetGeneration(gen int) { m.gen = gen }

// Generation returns the generation new entries receive.
func (m Model) Generation() int { return m.gen }

// Log records an event. A repeat of the newest entry is folded into it.
func (m *Model) Log(kind Kind, message string) {
	m.counts[kind]++
	now := m.Now()
	if n := len(m.entries); n > 0 {
		last := &m.entries[n-1]
		if last.Kind == kind && last.Gen == m.gen && last.Message == message {
			last.Repeat++
			last.Time = now
			return
		}
	}
	m.entries = append(m.entries, Entry{Time: now, Kind: kind, Gen: m.gen, Message: message})
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
	// Keep a scrolled-back reader on the same lines.
	if m.offset > 0 && !m.hidden[kind] {
		m.offset++
	}
	m.clampOffset()
}

// Logf is Log with fmt.Sprintf formatting.
func (m *Model) Logf(kind Kind, format string, args ...any) {
	m.Log(kind, fmt.Sprintf(format, args...))
}

// Count returns how many events of kind were logged since the last Clear,
// including folded and evicted ones.
func (m Model) Count(kind Kind) int { return m.counts[kind] }

// Entries returns the entries that pass the filter, oldest first.
func (m Model) Entries() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if !m.hidden[e.Kind] {
			out = append(out, e)
		}
	}
	return out
}

// Shown reports whether kind passes the filter.
func (m Model) Shown(kind Kind) bool { return !m.hidden[kind] }

// Toggle flips whether kind is shown.
func (m *Model) Toggle(kind Kind) {
	if kind < 0 || kind >= numKinds {
		return
	}
	m.hidden[kind] = !m.hidden[kind]
	m.offset = 0
}

// ErrorsOnly hides every kind but errors.
func (m *Model) ErrorsOnly() {
	for _, k := range Kinds {
		m.hidden[k] = k != KindError
	}
	m.offset = 0
}

// ShowAll clears the filter.
func (m *Model) ShowAll() {
	m.hidden = [numKinds]bool{}
	m.offset = 0
}

// Clear drops every entry and resets the counters. The filter stays.
func (m *Model) Clear() {
	m.entries = nil
	m.counts = [numKinds]int{}
	m.offset = 0
}

// Scroll moves the view n entries back in time, or forward when n < 0.
func (m *Model) Scroll(n int) {
	m.offset += n
	m.clampOffset()
}

// Offset returns how many visible entries lie below the view.
func (m Model) Offset() int { return m.offset }

func (m *Model) clampOffset() {
	hi := max(0, len(m.Entries())-1)
	m.offset = min(max(0, m.offset), hi)
}

// View renders the log as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := max(20, width-4)
	visible := max(3, height-8)

	title := theme.StyleHeader.Render(fmt.Sprintf(" EVENT LOG  gen %d ", m.gen))
	shown := m.Entries()
	footer := theme.StyleDimmed.Render(fmt.Sprintf("%s  %d/%d shown", m.Hint, len(shown), len(m.entries)))

	var body string
	switch {
	case len(m.entries) == 0:
		body = theme.StyleDimmed.Render("  No events recorded yet.")
	case len(shown) == 0:
		body = theme.StyleDimmed.Render("  No events match the filter.")
	default:
		end := len(shown) - m.offset
		start := max(0, end-visible)
		lines := make([]string, 0, end-start)
		for _, e := range shown[start:end] {
			lines = append(lines, m.line(e, innerW))
		}
		body = strings.Join(lines, "\n")
		if m.offset > 0 {
			body += "\n" + theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.offset))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.filterBar(), "", body, "", footer)
	return lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

// filterBar shows every kind with its number key and count; hidden kinds
// are dimmed.
func (m Model) filterBar() string {
	parts := make([]string, 0, numKinds)
	for i, k := range Kinds {
		label := fmt.Sprintf("[%d]%s %d", i+1, k, m.counts[k])
		style := lipgloss.NewStyle().Foreground(k.color())
		if m.hidden[k] {
			style = theme.StyleDimmed.Strikethrough(true)
		}
		parts = append(parts, style.Render(label))
	}
	return strings.Join(parts, "  ")
}

func (m Model) line(e Entry, width int) string {
	ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
	kind := lipgloss.NewStyle().Foreground(e.Kind.color()).Width(4).Render(e.Kind.String())
	gen := "  "
	if e.Gen != m.gen {
		gen = theme.StyleDimmed.Render(fmt.Sprintf("g%d", e.Gen))
	}
	msg := e.Message
	if e.Repeat > 0 {
		msg = fmt.Sprintf("%s (x%d)", msg, e.Repeat+1)
	}
	return fmt.Sprintf("%s %s %s %s", ts, gen, kind, truncate(msg, width-24))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max < 4 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
