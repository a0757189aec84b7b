package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSession(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantID  string
		wantErr string
	}{
		{name: "ok", status: http.StatusOK, body: `{"session_id":"abc123"}`, wantID: "abc123"},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"Failed to start session: boom"}`, wantErr: "boom"},
		{name: "bad gateway without body", status: http.StatusBadGateway, body: ``, wantErr: "status 502"},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: "decode response"},
		{name: "missing id", status: http.StatusOK, body: `{}`, wantErr: "no session_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/start-session", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s, err := NewHTTPClient(srv.URL+"/", time.Second).StartSession(context.Background())
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrStartSession)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, s.ID)
		})
	}
}

func TestStartSessionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(url, time.Second).StartSession(context.Background())
	require.ErrorIs(t, err, ErrStartSession)
}

func TestSocketURL(t *testing.T) {
	u, err := Session{ID: "abc123"}.SocketURL("ws://localhost:8000/")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws/abc123", u)

	u, err = Session{ID: "a/b c"}.SocketURL("wss://example.com")
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/ws/a%2Fb%20c", u)

	_, err = Session{ID: "abc"}.SocketURL("http://localhost:8000")
	assert.Error(t, err)

	_, err = Session{}.SocketURL("ws://localhost:8000")
	assert.Error(t, err)
}

// End to end: bootstrap, dial the session socket, lose it, reconnect.
func TestBootstrapConnectAndReconnect(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/start-session", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"session_id":"abc123"}`))
	})
	mux.HandleFunc("/ws/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.BinaryMessage, []byte{0xff, 0xd8, 0xff})
		// Drop the connection without a close frame.
		time.Sleep(50 * time.Millisecond)
		conn.Close()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	session, err := NewHTTPClient(srv.URL, time.Second).StartSession(context.Background())
	require.NoError(t, err)

	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")
	url, err := session.SocketURL(wsBase)
	require.NoError(t, err)
	assert.Equal(t, wsBase+"/ws/abc123", url)

	rec := &recorder{}
	sched := &fakeScheduler{}
	c := NewConn(url, rec.callbacks(), WithReconnect(3, time.Second))
	c.schedule = sched.schedule
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	require.Eventually(t, func() bool { return rec.count("message") == 1 }, waitFor, tick)
	assert.Equal(t, 0, rec.count("error"), "no error state after open")

	require.Eventually(t, func() bool { return sched.count() == 1 }, waitFor, tick)
	assert.Equal(t, time.Second, sched.delays()[0])
	assert.Equal(t, 1, rec.count("error"))
	assert.Equal(t, 1, rec.count("close"))

	require.True(t, sched.fire(0))
	require.Eventually(t, func() bool { return rec.count("open") == 2 }, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/ws/abc123", "/ws/abc123"}, paths)
}
