// Package errfmt turns raw backend and browser error strings into a short
// message and a suggestion for the user.
package errfmt

import (
	"fmt"
	"strings"
)

// Response is what the UI shows for an error.
type Response struct {
	Message    string
	Suggestion string
}

type entry struct {
	pattern  string
	response Response
}

// patterns is matched in order; the first substring hit wins.
var patterns = []entry{
	{"net::ERR_CERT_COMMON_NAME_INVALID", Response{
		Message:    "The website's security certificate is not valid.",
		Suggestion: "This might be a typo in the URL. Please check the URL and try again.",
	}},
	{"net::ERR_NAME_NOT_RESOLVED", Response{
		Message:    "Could not find this website.",
		Suggestion: "The domain might be incorrect or your internet connection might be down. Please check your spelling.",
	}},
	{"net::ERR_CONNECTION_REFUSED", Response{
		Message:    "The website refused to connect.",
		Suggestion: "The site might be down or blocking access. Please try again later.",
	}},
	{"net::ERR_CONNECTION_TIMED_OUT", Response{
		Message:    "The connection timed out.",
		Suggestion: "Please check your internet connection and try again.",
	}},
	{"net::ERR_INTERNET_DISCONNECTED", Response{
		Message:    "No internet connection available.",
		Suggestion: "Please check your network connection.",
	}},
	{"WebSocket", Response{
		Message:    "Lost connection to the browser service.",
		Suggestion: "Please refresh the page to reconnect.",
	}},
}

var (
	unknown = Response{
		Message:    "Unknown error",
		Suggestion: "Please try again",
	}
	invalidURL = Response{
		Message:    "The URL format is invalid.",
		Suggestion: "Please enter a valid web address (e.g., https://www.google.com)",
	}
	fallback = Response{
		Message:    "An error occurred while loading the page.",
		Suggestion: "Please try again or check if the URL is correct.",
	}
)

// Format classifies v, which may be nil, a string, an error, a fmt.Stringer
// or any printable value. It never panics.
func Format(v any) Response {
	msg := messageOf(v)
	if msg == "" {
		return unknown
	}
	for _, e := range patterns {
		if strings.Contains(msg, e.pattern) {
			return e.response
		}
	}
	if strings.Contains(msg, "Invalid URL") {
		return invalidURL
	}
	return fallback
}

// messageOf extracts the text of v. A panicking Error or String method (for
// example on a typed nil pointer) yields "".
func messageOf(v any) (msg string) {
	defer func() {
		if recover() != nil {
			msg = ""
		}
	}()

	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
