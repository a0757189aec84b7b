package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrStartSession is returned (wrapped) for every bootstrap failure.
var ErrStartSession = errors.New("failed to start browser session")

const defaultRequestTimeout = 10 * time.Second

// Session is a backend-issued handle for one remote browser page.
type Session struct {
	ID string
}

// SocketURL returns the realtime endpoint for the session: {wsBase}/ws/{id}.
func (s Session) SocketURL(wsBase string) (string, error) {
	if s.ID == "" {
		return "", errors.New("empty session id")
	}
	u, err := url.Parse(strings.TrimRight(wsBase, "/"))
	if err != nil {
		return "", fmt.Errorf("parse ws base: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("ws base %q: scheme must be ws or wss", wsBase)
	}
	return u.String() + "/ws/" + url.PathEscape(s.ID), nil
}

// HTTPClient makes REST calls to the browser backend.
type HTTPClient struct {
	baseURL string
	client  *resty.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://localhost:8000").
// A zero timeout uses the default of 10s.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	base := strings.TrimRight(baseURL, "/")
	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "remote-browser/1.0")
	return &HTTPClient{baseURL: base, client: rc}
}

// StartSession sends POST /api/start-session. It never retries; every failure
// wraps ErrStartSession.
func (c *HTTPClient) StartSession(ctx context.Context) (*Session, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Post("/api/start-session")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartSession, err)
	}

	var body SessionResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if !resp.IsSuccess() {
		if decodeErr == nil && body.Error != "" {
			return nil, fmt.Errorf("%w (%d): %s", ErrStartSession, resp.StatusCode(), body.Error)
		}
		return nil, fmt.Errorf("%w: status %d", ErrStartSession, resp.StatusCode())
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrStartSession, decodeErr)
	}
	if body.SessionID == "" {
		return nil, fmt.Errorf("%w: response has no session_id", ErrStartSession)
	}
	return &Session{ID: body.SessionID}, nil
}
