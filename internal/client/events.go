package client

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// --- Bubble Tea messages ---

// WSConnectedMsg is sent when the socket opens.
type WSConnectedMsg struct{}

// WSErrorMsg reports a transport error (dial failure, abnormal drop).
type WSErrorMsg struct{ Err error }

// WSDisconnectedMsg is sent when the socket closes.
type WSDisconnectedMsg struct{ Err error }

// WSRetryMsg is sent when a reconnect has been scheduled.
type WSRetryMsg struct {
	Attempt int
	Max     int
	Delay   time.Duration
}

// WSGaveUpMsg is sent once automatic reconnection has stopped.
type WSGaveUpMsg struct{ Attempts int }

// WSViewportMsg delivers a screenshot payload.
type WSViewportMsg struct {
	Data []byte
	MIME string
}

// WSControlErrorMsg carries a backend-reported application error.
type WSControlErrorMsg struct{ Message string }

const bridgeBuffer = 16

// Bridge turns Conn callbacks into Bubble Tea messages. The model pulls them
// one at a time with Next; producers block while the buffer is full.
type Bridge struct {
	events      chan tea.Msg
	done        chan struct{}
	once        sync.Once
	log         *zap.Logger
	maxAttempts int
}

// NewBridge creates a bridge. maxAttempts is only echoed in WSRetryMsg.
func NewBridge(log *zap.Logger, maxAttempts int) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		events:      make(chan tea.Msg, bridgeBuffer),
		done:        make(chan struct{}),
		log:         log,
		maxAttempts: maxAttempts,
	}
}

// Callbacks returns the callback set to hand to NewConn.
func (b *Bridge) Callbacks() Callbacks {
	return Callbacks{
		OnOpen:    func() { b.push(WSConnectedMsg{}) },
		OnMessage: b.onMessage,
		OnError:   func(err error) { b.push(WSErrorMsg{Err: err}) },
		OnClose:   func(err error) { b.push(WSDisconnectedMsg{Err: err}) },
		OnRetry: func(attempt int, delay time.Duration) {
			b.push(WSRetryMsg{Attempt: attempt, Max: b.maxAttempts, Delay: delay})
		},
		OnGiveUp: func(attempts int) { b.push(WSGaveUpMsg{Attempts: attempts}) },
	}
}

func (b *Bridge) onMessage(msg Message) {
	f := Classify(msg)
	switch f.Kind {
	case FrameViewport:
		b.push(WSViewportMsg{Data: f.Data, MIME: f.MIME})
	case FrameControl:
		b.push(WSControlErrorMsg{Message: f.Error})
	case FrameMalformed:
		b.log.Warn("dropping malformed frame", zap.Int("bytes", len(msg.Data)), zap.Error(f.Err))
	default:
		b.log.Debug("ignoring unrecognized control message", zap.ByteString("data", msg.Data))
	}
}

func (b *Bridge) push(msg tea.Msg) {
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

// Next returns a command that waits for the next event. It yields nil once
// the bridge is stopped.
func (b *Bridge) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}

// Stop releases blocked producers and pending Next commands.
func (b *Bridge) Stop() {
	b.once.Do(func() { close(b.done) })
}
