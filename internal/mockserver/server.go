// Package mockserver is a development stand-in for the browser-automation
// backend. It speaks the same HTTP and WebSocket protocol as the real service
// and answers every command with a rendered screenshot of a simulated page.
package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/client"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/config"
)

// CloseInvalidSession is sent when a socket names an unknown session.
const CloseInvalidSession = 4000

const (
	writeWait     = 10 * time.Second
	shutdownGrace = 5 * time.Second
)

// inbound is a command frame before its details are decoded.
type inbound struct {
	Type    client.CommandType `json:"type"`
	Details json.RawMessage    `json:"details"`
}

// Server serves the session bootstrap endpoint and the per-session sockets.
type Server struct {
	cfg      config.MockServerConfig
	store    *Store
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a server for cfg.
func NewServer(cfg config.MockServerConfig, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:   cfg,
		store: NewStore(cfg.ViewportWidth, cfg.ViewportHeight, cfg.SessionGrace),
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Store exposes the session store.
func (s *Server) Store() *Store { return s.store }

// SetupRoutes registers the protocol endpoints on mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/start-session", s.handleStartSession)
	mux.HandleFunc("GET /ws/{id}", s.handleWS)
}

// Handler returns the routes wrapped with permissive CORS headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id := s.store.Create()
	s.log.Info("created session", zap.String("session_id", id), zap.String("remote", r.RemoteAddr))
	writeJSON(w, http.StatusOK, client.SessionResponse{SessionID: id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	page, prev, ok := s.store.Attach(id, conn)
	if !ok {
		s.log.Info("rejecting unknown session", zap.String("session_id", id))
		closeWith(conn, CloseInvalidSession, "Invalid session")
		return
	}
	if prev != nil {
		closeWith(prev, websocket.ClosePolicyViolation, "Session attached elsewhere")
	}

	log := s.log.With(zap.String("session_id", id))
	log.Info("ws client connected", zap.String("remote", r.RemoteAddr))
	defer func() {
		s.store.Detach(id, conn)
		_ = conn.Close()
		log.Info("ws client disconnected")
	}()

	s.serve(r.Context(), conn, page, log)
}

// serve runs the command loop for one socket: each command is applied to
// the page and answered with a screenshot or an error frame.
func (s *Server) serve(ctx context.Context, conn *websocket.Conn, page *Page, log *zap.Logger) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.FramesPerSecond), 1)

	if err := s.sendFrame(ctx, conn, page, limiter); err != nil {
		log.Debug("initial frame", zap.Error(err))
		return
	}

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("ws read ended", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		if err := s.apply(page, data); err != nil {
			log.Info("command failed", zap.Error(err))
			if err := writeFrame(conn, websocket.TextMessage, mustJSON(client.ControlMessage{Error: err.Error()})); err != nil {
				return
			}
			continue
		}
		if err := s.sendFrame(ctx, conn, page, limiter); err != nil {
			log.Debug("send frame", zap.Error(err))
			return
		}
	}
}

func (s *Server) sendFrame(ctx context.Context, conn *websocket.Conn, page *Page, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	jpg, err := page.Render(s.cfg.JPEGQuality)
	if err != nil {
		return err
	}
	return writeFrame(conn, websocket.BinaryMessage, jpg)
}

// apply decodes one command frame and runs it against page.
func (s *Server) apply(page *Page, data []byte) error {
	var cmd inbound
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	switch cmd.Type {
	case client.CmdNavigate:
		var d client.NavigateDetails
		if err := decodeDetails(cmd, &d); err != nil {
			return err
		}
		return page.Navigate(d.URL)

	case client.CmdClick:
		var d client.ClickDetails
		if err := decodeDetails(cmd, &d); err != nil {
			return err
		}
		if d.Selector != "" {
			return page.ClickSelector(d.Selector)
		}
		return page.Click(d.X, d.Y)

	case client.CmdType:
		var d client.TypeDetails
		if err := decodeDetails(cmd, &d); err != nil {
			return err
		}
		page.Type(d.Text)
		if !d.PreventEnter {
			return page.Press("Enter")
		}
		return nil

	case client.CmdKeypress:
		var d client.KeypressDetails
		if err := decodeDetails(cmd, &d); err != nil {
			return err
		}
		return page.Press(d.Key)
	}
	return fmt.Errorf("unknown command type %q", cmd.Type)
}

func decodeDetails(cmd inbound, v any) error {
	if len(cmd.Details) == 0 {
		return fmt.Errorf("%s: missing details", cmd.Type)
	}
	if err := json.Unmarshal(cmd.Details, v); err != nil {
		return fmt.Errorf("%s: bad details: %w", cmd.Type, err)
	}
	return nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return b
}

func writeFrame(conn *websocket.Conn, kind int, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(kind, data)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

// ListenAndServe serves on host:port until ctx is cancelled, then closes
// open sockets and shuts the listener down.
func (s *Server) ListenAndServe(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mock backend listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down", zap.Int("sessions", s.store.Count()))
	for _, c := range s.store.Conns() {
		closeWith(c, websocket.CloseGoingAway, "Server shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
