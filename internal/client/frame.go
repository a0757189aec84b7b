package client

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/websocket"
)

// Message is one raw inbound socket message.
type Message struct {
	Type int // websocket.TextMessage or websocket.BinaryMessage
	Data []byte
}

// FrameKind is the routing decision for an inbound message.
type FrameKind int

const (
	FrameUnknown   FrameKind = iota // valid JSON, no recognized field
	FrameViewport                   // binary screenshot
	FrameControl                    // JSON carrying an error
	FrameMalformed                  // text that is not JSON
)

func (k FrameKind) String() string {
	switch k {
	case FrameViewport:
		return "viewport"
	case FrameControl:
		return "control"
	case FrameMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Frame is a classified inbound message.
type Frame struct {
	Kind  FrameKind
	Data  []byte // image bytes for FrameViewport
	MIME  string // sniffed content type for FrameViewport
	Error string // backend error text for FrameControl
	Err   error  // parse failure for FrameMalformed
}

var errNotJSON = errors.New("text frame is not valid JSON")

// Classify decides how an inbound message is handled.
func Classify(msg Message) Frame {
	if msg.Type == websocket.BinaryMessage {
		return Frame{
			Kind: FrameViewport,
			Data: msg.Data,
			MIME: mimetype.Detect(msg.Data).String(),
		}
	}

	if !json.Valid(msg.Data) {
		return Frame{Kind: FrameMalformed, Err: errNotJSON}
	}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		// Valid JSON that is not an object (array, string, number).
		return Frame{Kind: FrameUnknown}
	}

	raw := bytes.TrimSpace(envelope.Error)
	switch string(raw) {
	case "", "null", "false", "0":
		return Frame{Kind: FrameUnknown}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	if text == "" {
		return Frame{Kind: FrameUnknown}
	}
	return Frame{Kind: FrameControl, Error: text}
}
