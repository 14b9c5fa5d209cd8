// Package fetcher provides the shared HTTP transport for caption strategies.
package fetcher

import (
	"context"
	"net/http"
)

// Response is a fully read upstream reply. Strategies classify outcomes from
// the status code, headers, and body; the fetcher never interprets bodies.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsEmpty reports whether the body carries no usable bytes.
func (r *Response) IsEmpty() bool {
	for _, b := range r.Body {
		switch b {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}

// RetryAfter returns the Retry-After hint in seconds, or 0 if absent or not
// in delta-seconds form.
func (r *Response) RetryAfter() int {
	v := r.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0
		}
		secs = secs*10 + int(c-'0')
	}
	return secs
}

// Client issues upstream requests on behalf of strategies.
type Client interface {
	// Get fetches a URL with the browser request profile.
	Get(ctx context.Context, url string) (*Response, error)

	// Post sends a JSON body, used by the internal player API surface.
	Post(ctx context.Context, url string, body []byte) (*Response, error)
}
