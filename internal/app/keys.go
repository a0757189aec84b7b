package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/views/help"
)

// KeyMap defines all keyboard bindings for the console.
type KeyMap struct {
	Quit         key.Binding
	Reload       key.Binding
	Tab          key.Binding
	Enter        key.Binding
	Escape       key.Binding
	PreventEnter key.Binding
	Debug        key.Binding
	Help         key.Binding
	HelpViewport key.Binding
	ScrollUp     key.Binding
	ScrollDown   key.Binding

	// Event log filters, active while the log is open.
	LogKind   key.Binding
	LogErrors key.Binding
	LogAll    key.Binding
	LogClear  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "new browser session"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle focus: url, text, viewport"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "navigate / type / press Enter"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss error / close overlay"),
		),
		PreventEnter: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "toggle Enter after typing"),
		),
		Debug: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "debug log"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		HelpViewport: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help (viewport focus)"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll debug log"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "scroll debug log"),
		),
		LogKind: key.NewBinding(
			key.WithKeys("1", "2", "3", "4"),
			key.WithHelp("1-4", "toggle kind"),
		),
		LogErrors: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "errors only"),
		),
		LogAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "all"),
		),
		LogClear: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear"),
		),
	}
}

// closeOverlay lists the bindings that close an open overlay.
func (k KeyMap) closeOverlay() []key.Binding {
	return []key.Binding{k.Escape, k.Debug, k.Help, k.HelpViewport}
}

// LogHint is the key line shown under the event log.
func (k KeyMap) LogHint() string {
	var closeKeys []string
	for _, b := range k.closeOverlay() {
		closeKeys = append(closeKeys, b.Keys()...)
	}
	hints := []string{
		k.ScrollUp.Help().Key + "/" + k.ScrollDown.Help().Key + ":scroll",
	}
	for _, b := range []key.Binding{k.LogKind, k.LogErrors, k.LogAll, k.LogClear} {
		h := b.Help()
		hints = append(hints, h.Key+":"+h.Desc)
	}
	hints = append(hints, strings.Join(closeKeys, "/")+":close")
	return strings.Join(hints, "  ")
}

// remoteKeys maps terminal key names to the key names the remote browser
// accepts. Only consulted while the viewport has focus.
var remoteKeys = map[string]string{
	"up":        "ArrowUp",
	"down":      "ArrowDown",
	"left":      "ArrowLeft",
	"right":     "ArrowRight",
	"pgup":      "PageUp",
	"pgdown":    "PageDown",
	"home":      "Home",
	"end":       "End",
	"enter":     "Enter",
	"backspace": "Backspace",
	"esc":       "Escape",
}

// HelpBindings lists the bindings shown in the help overlay.
func (k KeyMap) HelpBindings() []help.Binding {
	all := []key.Binding{
		k.Tab, k.Enter, k.PreventEnter, k.Escape,
		k.Debug, k.Help, k.HelpViewport, k.Reload, k.Quit,
	}
	out := make([]help.Binding, 0, len(all)+1)
	for _, b := range all {
		h := b.Help()
		out = append(out, help.Binding{Keys: h.Key, Desc: h.Desc})
	}
	out = append(out, help.Binding{
		Keys: "arrows pgup pgdown home end backspace",
		Desc: "sent to the page while the viewport has focus",
	})
	out = append(out, help.Binding{Keys: "mouse left", Desc: "click the page"})
	return out
}
