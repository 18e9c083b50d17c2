package explorer

import (
	"fmt"
	"log/slog"
	"strings"
)

// restyLogger routes resty's own messages to slog with the API key masked.
// resty logs failed requests with their full URL, query string included.
type restyLogger struct {
	log    *slog.Logger
	secret string
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.log.Debug(l.redact(format, v), "level", "error")
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.log.Debug(l.redact(format, v), "level", "warn")
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.log.Debug(l.redact(format, v))
}

func (l restyLogger) redact(format string, v []any) string {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if l.secret == "" {
		return msg
	}
	return strings.ReplaceAll(msg, l.secret, "****")
}

// WithLogger routes HTTP client diagnostics to log at debug level.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}
