package logging

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger returns chi request-logging middleware that writes one slog
// record per request. 5xx responses log at error, 4xx at warn, the rest at info.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return middleware.RequestLogger(&requestFormatter{logger: logger})
}

type requestFormatter struct {
	logger *slog.Logger
}

func (f *requestFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestEntry{
		logger: f.logger.With(
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		),
	}
}

type requestEntry struct {
	logger *slog.Logger
}

func (e *requestEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	e.logger.Log(context.Background(), level, "http request",
		"status", status,
		"bytes", bytes,
		"elapsed", elapsed,
	)
}

func (e *requestEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("http handler panic", "panic", v, "stack", string(stack))
}
