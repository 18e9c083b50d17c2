// Package logging provides structured logging for outgoing HTTP requests.
package logging

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request made through NewClient.
const DefaultTimeout = 30 * time.Second

// countingBody counts the response bytes read by the caller.
type countingBody struct {
	io.ReadCloser
	bytes int
	done  func(n int)
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.bytes += n
	return n, err
}

func (b *countingBody) Close() error {
	err := b.ReadCloser.Close()
	if b.done != nil {
		b.done(b.bytes)
		b.done = nil
	}
	return err
}

type transport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

// Transport returns a RoundTripper that logs every request at debug level:
// method, host, path, status, bytes and duration. The query string is
// never logged since explorer APIs carry the API key there.
func Transport(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{next: next, logger: logger}
}

func (t *transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	attrs := []any{
		"method", r.Method,
		"host", r.URL.Host,
		"path", r.URL.Path,
	}

	resp, err := t.next.RoundTrip(r)
	if err != nil {
		t.logger.Debug("request failed", append(attrs,
			"duration", time.Since(start).String(),
			"error", err,
		)...)
		return nil, err
	}

	attrs = append(attrs, "status", resp.StatusCode)
	resp.Body = &countingBody{
		ReadCloser: resp.Body,
		done: func(n int) {
			t.logger.Debug("request", append(attrs,
				"bytes", n,
				"duration", time.Since(start).String(),
			)...)
		},
	}
	return resp, nil
}

// NewClient returns an HTTP client whose requests are logged to logger.
func NewClient(logger *slog.Logger) *http.Client {
	return &http.Client{
		Transport: Transport(nil, logger),
		Timeout:   DefaultTimeout,
	}
}
