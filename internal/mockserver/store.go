package mockserver

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// session is one simulated page and the socket currently driving it.
type session struct {
	id     string
	page   *Page
	conn   *websocket.Conn
	expiry *time.Timer
	detach int
}

// Store holds the live sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	grace    time.Duration
	width    int
	height   int
}

// NewStore creates a store whose pages have the given viewport. Detached
// sessions are removed after grace.
func NewStore(width, height int, grace time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*session),
		grace:    grace,
		width:    width,
		height:   height,
	}
}

// Create starts a new session and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{id: id, page: NewPage(s.width, s.height)}
	return id
}

// Page returns the page of session id.
func (s *Store) Page(id string) (*Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.page, true
}

// Attach binds conn to session id and cancels any pending expiry. A socket
// already attached is returned so the caller can close it.
func (s *Store) Attach(id string, conn *websocket.Conn) (page *Page, prev *websocket.Conn, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil, false
	}
	if sess.expiry != nil {
		sess.expiry.Stop()
		sess.expiry = nil
	}
	prev, sess.conn = sess.conn, conn
	return sess.page, prev, true
}

// Detach unbinds conn from session id. The session is removed at once when
// the grace period is zero, otherwise after it unless a socket reattaches.
func (s *Store) Detach(id string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.conn != conn {
		return
	}
	sess.conn = nil
	if s.grace <= 0 {
		delete(s.sessions, id)
		return
	}
	sess.detach++
	n := sess.detach
	sess.expiry = time.AfterFunc(s.grace, func() { s.expire(id, sess, n) })
}

func (s *Store) expire(id string, sess *session, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[id]; ok && cur == sess && cur.conn == nil && cur.detach == n {
		delete(s.sessions, id)
	}
}

// Remove deletes session id.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok && sess.expiry != nil {
		sess.expiry.Stop()
	}
	delete(s.sessions, id)
}

// Count returns the number of sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Conns returns every attached socket.
func (s *Store) Conns() []*websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*websocket.Conn, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.conn != nil {
			out = append(out, sess.conn)
		}
	}
	return out
}
