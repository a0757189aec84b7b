package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// fakeSocket is an in-memory Socket. Reads block until a message or an error
// is injected, or the socket is closed.
type fakeSocket struct {
	inbox  chan Message
	errs   chan error
	closed chan struct{}
	once   sync.Once

	mu         sync.Mutex
	written    []Message
	closeCount int
	writeErr   error
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		inbox:  make(chan Message, 8),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case m := <-s.inbox:
		return m.Type, m.Data, nil
	case err := <-s.errs:
		return 0, nil, err
	case <-s.closed:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (s *fakeSocket) WriteMessage(mt int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written = append(s.written, Message{Type: mt, Data: append([]byte(nil), data...)})
	return nil
}

func (s *fakeSocket) SetWriteDeadline(time.Time) error         { return nil }
func (s *fakeSocket) SetReadDeadline(time.Time) error          { return nil }
func (s *fakeSocket) SetPongHandler(func(appData string) error) {}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	s.closeCount++
	s.mu.Unlock()
	s.once.Do(func() { close(s.closed) })
	return nil
}

// drop simulates the server going away abnormally.
func (s *fakeSocket) drop() {
	s.errs <- &websocket.CloseError{Code: websocket.CloseAbnormalClosure}
}

// textFrames returns the text frames written so far.
func (s *fakeSocket) textFrames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.written {
		if m.Type == websocket.TextMessage {
			out = append(out, string(m.Data))
		}
	}
	return out
}

func (s *fakeSocket) closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

// fakeDialer hands out fakeSockets, failing the next failNext dials.
type fakeDialer struct {
	mu       sync.Mutex
	failNext int
	urls     []string
	sockets  []*fakeSocket
}

var errDialRefused = errors.New("dial tcp: connection refused")

func (d *fakeDialer) DialContext(_ context.Context, url string) (Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.failNext > 0 {
		d.failNext--
		return nil, errDialRefused
	}
	s := newFakeSocket()
	d.sockets = append(d.sockets, s)
	return s, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) socket(i int) *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sockets[i]
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// fakeScheduler records scheduled reconnects; tests fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) schedule(d time.Duration, fn func()) stopFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	s.timers = append(s.timers, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		active := !t.stopped && !t.fired
		t.stopped = true
		return active
	}
}

func (s *fakeScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t.delay)
	}
	return out
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire runs timer i unless it was stopped.
func (s *fakeScheduler) fire(i int) bool {
	s.mu.Lock()
	t := s.timers[i]
	if t.stopped || t.fired {
		s.mu.Unlock()
		return false
	}
	t.fired = true
	s.mu.Unlock()
	t.fn()
	return true
}

// fireAnyway runs timer i even if it was stopped, like a timer whose
// goroutine had already started when Stop was called.
func (s *fakeScheduler) fireAnyway(i int) {
	s.mu.Lock()
	t := s.timers[i]
	t.fired = true
	s.mu.Unlock()
	t.fn()
}

func (s *fakeScheduler) stopped(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i].stopped
}

// recorder captures callback invocations.
type recorder struct {
	mu       sync.Mutex
	events   []string
	messages []Message
	errs     []error
	retries  []time.Duration
	gaveUp   []int
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnOpen: func() { r.add("open") },
		OnMessage: func(m Message) {
			r.mu.Lock()
			r.messages = append(r.messages, m)
			r.mu.Unlock()
			r.add("message")
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.add("error")
		},
		OnClose: func(error) { r.add("close") },
		OnRetry: func(_ int, d time.Duration) {
			r.mu.Lock()
			r.retries = append(r.retries, d)
			r.mu.Unlock()
			r.add("retry")
		},
		OnGiveUp: func(n int) {
			r.mu.Lock()
			r.gaveUp = append(r.gaveUp, n)
			r.mu.Unlock()
			r.add("giveup")
		},
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(ev string) int {
	n := 0
	for _, e := range r.snapshot() {
		if e == ev {
			n++
		}
	}
	return n
}

// newTestConn wires a Conn to fakes.
func newTestConn(d *fakeDialer, rec *recorder) (*Conn, *fakeScheduler) {
	sched := &fakeScheduler{}
	c := NewConn("ws://backend.test/ws/abc123", rec.callbacks(),
		WithDialer(d),
		WithReconnect(3, time.Second),
	)
	c.schedule = sched.schedule
	return c, sched
}
