package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second

	defaultWriteTimeout = 10 * time.Second
	defaultDialTimeout  = 10 * time.Second
	pongGrace           = 2
)

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("connection closed")

// errSuperseded is returned when another Connect or Close won the race
// against an in-flight dial.
var errSuperseded = errors.New("connect superseded")

// Socket is the subset of *websocket.Conn the connection uses.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens sockets.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Socket, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// DialContext implements Dialer.
func (d WebsocketDialer) DialContext(ctx context.Context, url string) (Socket, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Callbacks is the event set a Conn reports to. Any field may be nil.
// Callbacks run on connection goroutines, never with internal locks held.
type Callbacks struct {
	OnOpen    func()
	OnMessage func(Message)
	OnError   func(error)
	OnClose   func(error)
	// OnRetry reports a scheduled reconnect.
	OnRetry func(attempt int, delay time.Duration)
	// OnGiveUp fires once the reconnect ceiling is reached.
	OnGiveUp func(attempts int)
}

// State is the observable lifecycle of a Conn.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateExhausted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateExhausted:
		return "exhausted"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// stopFunc cancels a scheduled callback; it reports whether the call was
// stopped before running.
type stopFunc func() bool

func afterFunc(d time.Duration, f func()) stopFunc {
	return time.AfterFunc(d, f).Stop
}

// Option configures a Conn.
type Option func(*Conn)

// WithDialer replaces the gorilla dialer.
func WithDialer(d Dialer) Option { return func(c *Conn) { c.dialer = d } }

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option { return func(c *Conn) { c.log = l } }

// WithReconnect sets the reconnect ceiling and the linear backoff base.
func WithReconnect(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Conn) {
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
	}
}

// WithPingInterval enables keepalive pings. Zero disables them.
func WithPingInterval(d time.Duration) Option { return func(c *Conn) { c.pingInterval = d } }

// WithWriteTimeout bounds every socket write.
func WithWriteTimeout(d time.Duration) Option { return func(c *Conn) { c.writeTimeout = d } }

// Conn owns one realtime socket at a time and reconnects it with bounded
// linear backoff.
type Conn struct {
	url          string
	cb           Callbacks
	dialer       Dialer
	log          *zap.Logger
	maxAttempts  int
	baseDelay    time.Duration
	pingInterval time.Duration
	writeTimeout time.Duration
	schedule     func(time.Duration, func()) stopFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	writeMu   sync.Mutex // serialises all socket writes
	sock      Socket
	state     State
	gen       uint64 // bumped by every Connect and by Close
	attempts  int
	failedGen uint64 // last generation whose failure was handled
	pending   stopFunc
	closed    bool
}

// NewConn creates a connection to url. Nothing is dialed until Connect.
func NewConn(url string, cb Callbacks, opts ...Option) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		url:          url,
		cb:           cb,
		dialer:       WebsocketDialer{},
		log:          zap.NewNop(),
		maxAttempts:  DefaultMaxAttempts,
		baseDelay:    DefaultBaseDelay,
		writeTimeout: defaultWriteTimeout,
		schedule:     afterFunc,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the target endpoint.
func (c *Conn) URL() string { return c.url }

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the reconnect attempts made since the last successful open.
func (c *Conn) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect closes any previous socket, cancels a pending reconnect and dials.
// Failures are reported through the callbacks and the reconnect policy as
// well as the returned error.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.stopPendingLocked()
	prev := c.sock
	c.sock = nil
	c.gen++
	gen := c.gen
	c.state = StateConnecting
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	stop := context.AfterFunc(c.ctx, cancel)
	sock, err := c.dialer.DialContext(dialCtx, c.url)
	stop()
	cancel()

	if err != nil {
		if !c.isCurrent(gen) {
			return c.staleErr()
		}
		c.log.Warn("ws dial failed", zap.String("url", c.url), zap.Error(err))
		c.fail(gen, err, true)
		return err
	}

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		sock.Close()
		return c.staleErr()
	}
	c.sock = sock
	c.state = StateOpen
	c.attempts = 0
	c.mu.Unlock()

	c.log.Info("ws connected", zap.String("url", c.url))
	if c.cb.OnOpen != nil {
		c.cb.OnOpen()
	}

	if c.pingInterval > 0 {
		sock.SetReadDeadline(time.Now().Add(pongGrace * c.pingInterval))
		sock.SetPongHandler(func(string) error {
			return sock.SetReadDeadline(time.Now().Add(pongGrace * c.pingInterval))
		})
		go c.pingLoop(gen, sock)
	}
	go c.readLoop(gen, sock)
	return nil
}

// Send writes cmd as one JSON text frame. It returns false, without queueing,
// when no socket is open or the write fails.
func (c *Conn) Send(cmd Command) bool {
	c.mu.Lock()
	sock := c.sock
	open := c.state == StateOpen
	c.mu.Unlock()
	if sock == nil || !open {
		return false
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		c.log.Error("encode command", zap.String("type", string(cmd.Type)), zap.Error(err))
		return false
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := sock.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Warn("ws write failed", zap.String("type", string(cmd.Type)), zap.Error(err))
		return false
	}
	return true
}

// Close tears the connection down for good. Pending reconnect timers become
// no-ops and later socket events are ignored. Close is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen++
	c.stopPendingLocked()
	sock := c.sock
	c.sock = nil
	c.state = StateClosed
	c.mu.Unlock()

	c.cancel()
	if sock != nil {
		c.writeMu.Lock()
		sock.SetWriteDeadline(time.Now().Add(time.Second))
		sock.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closed"))
		c.writeMu.Unlock()
		sock.Close()
	}
	c.log.Info("ws closed by client", zap.String("url", c.url))
	return nil
}

func (c *Conn) readLoop(gen uint64, sock Socket) {
	for {
		mt, data, err := sock.ReadMessage()
		if err != nil {
			c.drop(gen, sock, err)
			return
		}
		if !c.isCurrent(gen) {
			return
		}
		if c.cb.OnMessage != nil {
			c.cb.OnMessage(Message{Type: mt, Data: data})
		}
	}
}

// pingLoop sends periodic pings on the given socket. It exits when the
// socket is superseded or a write fails; the read loop reports the failure.
func (c *Conn) pingLoop(gen uint64, sock Socket) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if !c.isCurrent(gen) {
				return
			}
			c.writeMu.Lock()
			sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			err := sock.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// drop handles the end of a live socket.
func (c *Conn) drop(gen uint64, sock Socket, err error) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.sock = nil
	c.state = StateReconnecting
	c.mu.Unlock()
	sock.Close()

	abnormal := !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
	if abnormal {
		c.log.Warn("ws connection lost", zap.String("url", c.url), zap.Error(err))
	}
	c.fail(gen, err, abnormal)
}

// fail reports a failed socket generation and applies the reconnect policy.
func (c *Conn) fail(gen uint64, err error, reportError bool) {
	c.mu.Lock()
	if c.closed || c.gen != gen || c.failedGen == gen {
		c.mu.Unlock()
		return
	}
	c.failedGen = gen
	c.mu.Unlock()

	if reportError && c.cb.OnError != nil {
		c.cb.OnError(err)
	}
	if c.cb.OnClose != nil {
		c.cb.OnClose(err)
	}
	c.scheduleReconnect(gen)
}

func (c *Conn) scheduleReconnect(gen uint64) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.maxAttempts {
		attempts := c.attempts
		c.state = StateExhausted
		c.mu.Unlock()
		c.log.Error("ws reconnect attempts exhausted", zap.String("url", c.url), zap.Int("attempts", attempts))
		if c.cb.OnGiveUp != nil {
			c.cb.OnGiveUp(attempts)
		}
		return
	}
	c.attempts++
	attempt := c.attempts
	delay := c.baseDelay * time.Duration(attempt)
	c.state = StateReconnecting
	c.pending = c.schedule(delay, func() { c.reconnect(gen) })
	c.mu.Unlock()

	c.log.Info("ws reconnect scheduled", zap.Int("attempt", attempt), zap.Duration("delay", delay))
	if c.cb.OnRetry != nil {
		c.cb.OnRetry(attempt, delay)
	}
}

// reconnect runs on the timer goroutine. gen is the generation that failed;
// anything newer (a manual Connect, Close) makes the timer stale.
func (c *Conn) reconnect(gen uint64) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.mu.Unlock()
	c.Connect(c.ctx)
}

func (c *Conn) stopPendingLocked() {
	if c.pending != nil {
		c.pending()
		c.pending = nil
	}
}

func (c *Conn) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.gen == gen
}

func (c *Conn) staleErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return errSuperseded
}
