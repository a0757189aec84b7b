// Package theme provides the Lip Gloss color palette and reusable styles
// for the remote browser console. It is a leaf package with no internal
// imports to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Connection state colors.
var (
	ColorOpen         = lipgloss.Color("#22c55e")
	ColorConnecting   = lipgloss.Color("#7c3aed")
	ColorReconnecting = lipgloss.Color("#d97706")
	ColorLost         = lipgloss.Color("#dc2626")
	ColorIdle         = lipgloss.Color("#4b5563")
)

// Event log colors.
var (
	ColorSocket  = lipgloss.Color("#2563eb")
	ColorCommand = lipgloss.Color("#7c3aed")
	ColorFrame   = lipgloss.Color("#16a34a")
	ColorError   = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorFocus   = lipgloss.Color("#3b82f6")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// StateColor returns the color for a connection state name.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "open":
		return ColorOpen
	case "connecting":
		return ColorConnecting
	case "reconnecting", "disconnected":
		return ColorReconnecting
	case "exhausted", "closed":
		return ColorLost
	default:
		return ColorIdle
	}
}

// StateGlyph returns a Unicode glyph for a connection state name.
func StateGlyph(state string) string {
	switch state {
	case "open":
		return "●"
	case "connecting":
		return "◎"
	case "reconnecting", "disconnected":
		return "◌"
	case "exhausted", "closed":
		return "✗"
	default:
		return "○"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleFocused = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorFocus)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleError = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorDanger)
)
