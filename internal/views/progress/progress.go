// Package progress renders a spring-animated horizontal bar. The console
// uses it for reconnect attempts.
package progress

import (
	"math"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/theme"
)

const (
	fps       = 60
	frequency = 18.0
	damping   = 1.0
	settle    = 0.001
)

// FrameMsg advances the animation of the bar with the matching id.
type FrameMsg struct {
	id  int64
	tag int
}

var lastID atomic.Int64

// Model animates toward Target.
type Model struct {
	id  int64
	tag int

	spring   harmonica.Spring
	pos, vel float64
	target   float64

	Full  lipgloss.Color
	Empty lipgloss.Color
}

// New returns a bar at zero.
func New() Model {
	return Model{
		id:     lastID.Add(1),
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping),
		Full:   theme.ColorWarning,
		Empty:  theme.ColorBorder,
	}
}

// SetTarget starts animating toward frac, clamped to [0,1].
func (m *Model) SetTarget(frac float64) tea.Cmd {
	switch {
	case frac < 0:
		frac = 0
	case frac > 1:
		frac = 1
	}
	m.target = frac
	m.tag++
	return m.tick()
}

// Target returns the value the bar is moving toward.
func (m Model) Target() float64 { return m.target }

// Position returns the animated value.
func (m Model) Position() float64 { return m.pos }

// Animating reports whether the bar has yet to settle.
func (m Model) Animating() bool {
	return math.Abs(m.pos-m.target) > settle || math.Abs(m.vel) > settle
}

// Update handles FrameMsg values for this bar and ignores everything else.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	f, ok := msg.(FrameMsg)
	if !ok || f.id != m.id || f.tag != m.tag {
		return m, nil
	}
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, m.target)
	if !m.Animating() {
		m.pos, m.vel = m.target, 0
		return m, nil
	}
	return m, m.tick()
}

func (m Model) tick() tea.Cmd {
	id, tag := m.id, m.tag
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg {
		return FrameMsg{id: id, tag: tag}
	})
}

// View renders the bar width cells wide.
func (m Model) View(width int) string {
	if width < 1 {
		return ""
	}
	p := m.pos
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	filled := int(p*float64(width) + 0.5)
	full := lipgloss.NewStyle().Foreground(m.Full).Render(strings.Repeat("█", filled))
	empty := lipgloss.NewStyle().Foreground(m.Empty).Render(strings.Repeat("░", width-filled))
	return full + empty
}

