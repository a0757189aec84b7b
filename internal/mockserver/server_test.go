package mockserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/client"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/config"
)

func testConfig() config.MockServerConfig {
	cfg := config.Default().MockServer
	cfg.ViewportWidth, cfg.ViewportHeight = 320, 200
	cfg.FramesPerSecond = 1000
	cfg.SessionGrace = 0
	return cfg
}

func newTestServer(t *testing.T, cfg config.MockServerConfig) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(cfg, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func startSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/start-session", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body client.SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.SessionID)
	return body.SessionID
}

func dial(t *testing.T, ts *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return kind, data
}

func send(t *testing.T, conn *websocket.Conn, cmd client.Command) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
}

func TestStartSession(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	a := startSession(t, ts)
	b := startSession(t, ts)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Store().Count())
}

func TestStartSessionRejectsGet(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	resp, err := http.Get(ts.URL + "/api/start-session")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUnknownSessionClosed(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	conn := dial(t, ts, "nope")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CloseInvalidSession, ce.Code)
	assert.Equal(t, "Invalid session", ce.Text)
}

func TestCommandsAnswerWithFrames(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	id := startSession(t, ts)
	conn := dial(t, ts, id)

	kind, data := read(t, conn)
	require.Equal(t, websocket.BinaryMessage, kind, "initial frame")
	assert.Equal(t, client.FrameViewport, client.Classify(client.Message{Type: kind, Data: data}).Kind)

	send(t, conn, client.Navigate("https://example.com"))
	kind, _ = read(t, conn)
	assert.Equal(t, websocket.BinaryMessage, kind)

	send(t, conn, client.Type("hello", false))
	read(t, conn)
	send(t, conn, client.Click(10, 20))
	read(t, conn)

	page, ok := s.Store().Page(id)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", page.URL())
	assert.Equal(t, []string{"hello"}, page.Lines())
	assert.Len(t, page.Marks(), 1)
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  any
		want string
	}{
		{"invalid url", client.Navigate("not a url"), "Invalid URL"},
		{"unresolvable", client.Navigate("https://shop.invalid"), "net::ERR_NAME_NOT_RESOLVED"},
		{"outside click", client.Click(5000, 5), "outside"},
		{"unknown key", client.Keypress("Hyper"), "Unknown key"},
		{"unknown type", map[string]any{"type": "scroll", "details": map[string]any{}}, "unknown command type"},
		{"missing details", map[string]any{"type": "navigate"}, "missing details"},
	}

	_, ts := newTestServer(t, testConfig())
	conn := dial(t, ts, startSession(t, ts))
	read(t, conn)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteJSON(tt.cmd))
			kind, data := read(t, conn)
			require.Equal(t, websocket.TextMessage, kind)
			f := client.Classify(client.Message{Type: kind, Data: data})
			require.Equal(t, client.FrameControl, f.Kind)
			assert.Contains(t, f.Error, tt.want)
		})
	}

	send(t, conn, client.Keypress("Enter"))
	kind, _ := read(t, conn)
	assert.Equal(t, websocket.BinaryMessage, kind, "socket stays usable after errors")
}

func TestSessionRemovedOnDisconnect(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	id := startSession(t, ts)
	conn := dial(t, ts, id)
	read(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return s.Store().Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestGraceAllowsReconnect(t *testing.T) {
	cfg := testConfig()
	cfg.SessionGrace = time.Minute
	s, ts := newTestServer(t, cfg)
	id := startSession(t, ts)

	first := dial(t, ts, id)
	read(t, first)
	send(t, first, client.Navigate("https://example.com"))
	read(t, first)
	first.Close()

	second := dial(t, ts, id)
	kind, _ := read(t, second)
	assert.Equal(t, websocket.BinaryMessage, kind)
	page, ok := s.Store().Page(id)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", page.URL())
}

func TestListenAndServeShutsDown(t *testing.T) {
	s := NewServer(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1", 0) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
