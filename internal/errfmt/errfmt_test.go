package errfmt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pathError struct{ path string }

func (e *pathError) Error() string { return "open " + e.path }

func TestFormat(t *testing.T) {
	var typedNil *pathError
	empty := ""

	tests := []struct {
		name        string
		input       any
		wantMessage string
	}{
		{"name not resolved", "net::ERR_NAME_NOT_RESOLVED: lookup failed", "Could not find this website."},
		{"certificate", "page.goto: net::ERR_CERT_COMMON_NAME_INVALID at https://x", "The website's security certificate is not valid."},
		{"refused", "net::ERR_CONNECTION_REFUSED", "The website refused to connect."},
		{"timed out", "net::ERR_CONNECTION_TIMED_OUT", "The connection timed out."},
		{"offline", "net::ERR_INTERNET_DISCONNECTED", "No internet connection available."},
		{"websocket", "WebSocket connection failed", "Lost connection to the browser service."},
		{"empty string", "", "Unknown error"},
		{"nil", nil, "Unknown error"},
		{"empty string pointer", &empty, "Unknown error"},
		{"invalid url", "some random text Invalid URL here", "The URL format is invalid."},
		{"unrecognized", "totally unrecognized", "An error occurred while loading the page."},
		{"error value", errors.New("net::ERR_NAME_NOT_RESOLVED"), "Could not find this website."},
		{"wrapped error", fmt.Errorf("navigate: %w", errors.New("Invalid URL")), "The URL format is invalid."},
		{"typed nil error", typedNil, "Unknown error"},
		{"number", 42, "An error occurred while loading the page."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, Format(tt.input).Message)
		})
	}
}

func TestFormatDefaults(t *testing.T) {
	assert.Equal(t, Response{Message: "Unknown error", Suggestion: "Please try again"}, Format(nil))
	assert.Equal(t, "Please try again or check if the URL is correct.", Format("x").Suggestion)
}

// Patterns are checked in order: an earlier entry wins over a later one and
// over the Invalid URL rule.
func TestFormatOrder(t *testing.T) {
	got := Format("WebSocket: net::ERR_CONNECTION_REFUSED, Invalid URL")
	assert.Equal(t, "The website refused to connect.", got.Message)
}
