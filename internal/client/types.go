// Package client provides the WebSocket and HTTP clients for the remote
// browser backend. Types mirror the backend wire protocol.
package client

// CommandType identifies the kind of outbound command.
type CommandType string

const (
	CmdNavigate CommandType = "navigate"
	CmdClick    CommandType = "click"
	CmdType     CommandType = "type"
	CmdKeypress CommandType = "keypress"
)

// Command is the envelope for every outbound message.
type Command struct {
	Type    CommandType `json:"type"`
	Details any         `json:"details"`
}

// NavigateDetails asks the remote page to load URL.
type NavigateDetails struct {
	URL string `json:"url"`
}

// ClickDetails clicks at viewport pixel coordinates, or on Selector when set.
type ClickDetails struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Selector string `json:"selector,omitempty"`
}

// TypeDetails types Text into the focused element, or into Selector when set.
type TypeDetails struct {
	Text         string `json:"text"`
	PreventEnter bool   `json:"preventEnter,omitempty"`
	Selector     string `json:"selector,omitempty"`
}

// KeypressDetails presses a single named key (e.g. "Enter", "ArrowDown").
type KeypressDetails struct {
	Key string `json:"key"`
}

// Navigate builds a navigate command.
func Navigate(url string) Command {
	return Command{Type: CmdNavigate, Details: NavigateDetails{URL: url}}
}

// Click builds a coordinate click command.
func Click(x, y int) Command {
	return Command{Type: CmdClick, Details: ClickDetails{X: x, Y: y}}
}

// Type builds a type command. preventEnter suppresses the trailing Enter.
func Type(text string, preventEnter bool) Command {
	return Command{Type: CmdType, Details: TypeDetails{Text: text, PreventEnter: preventEnter}}
}

// Keypress builds a keypress command.
func Keypress(key string) Command {
	return Command{Type: CmdKeypress, Details: KeypressDetails{Key: key}}
}

// ControlMessage is the recognized shape of an inbound text frame.
type ControlMessage struct {
	Error string `json:"error,omitempty"`
}

// SessionResponse is returned by POST /api/start-session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error,omitempty"`
}
