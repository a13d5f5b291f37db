package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// LoggingTransport logs every round trip: method, path, status and duration.
// Headers, bodies and query values are never logged.
type LoggingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

// NewLoggingTransport оборачивает next; nil означает http.DefaultTransport
func NewLoggingTransport(next http.RoundTripper, logger *slog.Logger) *LoggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingTransport{next: next, logger: logger}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.Log(req.Context(), slog.LevelWarn, "HTTP round trip failed",
			"method", req.Method,
			"path", sanitizeURL(req.URL),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	// Уровень логирования по статусу ответа
	level := slog.LevelDebug
	if resp.StatusCode >= 500 {
		level = slog.LevelError
	} else if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}

	t.logger.Log(req.Context(), level, "HTTP request",
		"method", req.Method,
		"path", sanitizeURL(req.URL),
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
		"content_length", resp.ContentLength,
	)
	return resp, nil
}

// sanitizeURL returns the path with query values replaced by ***
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	if u.RawQuery == "" {
		return u.Path
	}

	q := u.Query()
	for key := range q {
		q.Set(key, "***")
	}
	// Encode экранирует "*"; для лога это не важно
	masked, _ := url.QueryUnescape(q.Encode())
	return u.Path + "?" + masked
}
