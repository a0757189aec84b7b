package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/theme"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/views/progress"
)

// Model holds the status bar state.
type Model struct {
	State      string // connection state name
	SessionID  string
	Processing bool
	Spinner    string

	FrameWidth  int
	FrameHeight int
	FrameAt     time.Time

	Attempt    int
	MaxAttempt int
	RetryIn    time.Duration
	Retry      progress.Model

	Width int
	Now   func() time.Time
}

// New creates a status bar model.
func New() Model {
	return Model{
		State: "idle",
		Retry: progress.New(),
		Now:   time.Now,
	}
}

// ShortID returns the first eight characters of the session id.
func (m Model) ShortID() string {
	if len(m.SessionID) > 8 {
		return m.SessionID[:8]
	}
	return m.SessionID
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")

	connStr := lipgloss.NewStyle().Foreground(theme.StateColor(m.State)).
		Render(theme.StateGlyph(m.State) + " " + m.State)
	content := connStr

	if m.SessionID != "" {
		content += sep + theme.StyleDimmed.Render("session "+m.ShortID())
	}

	if m.FrameWidth > 0 {
		frame := fmt.Sprintf("%dx%d", m.FrameWidth, m.FrameHeight)
		if !m.FrameAt.IsZero() && m.Now != nil {
			frame += " " + formatAge(m.Now().Sub(m.FrameAt))
		}
		content += sep + frame
	} else {
		content += sep + theme.StyleDimmed.Render("no frame")
	}

	if m.Processing {
		content += sep + m.Spinner + " processing"
	}

	if m.State == "reconnecting" && m.MaxAttempt > 0 {
		content += sep + fmt.Sprintf("retry %d/%d in %s ", m.Attempt, m.MaxAttempt, m.RetryIn) +
			m.Retry.View(10)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

// formatAge renders elapsed time as a compact string (e.g. "3s", "2m").
func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
