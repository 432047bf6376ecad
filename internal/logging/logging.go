// Package logging configures the process-wide structured logger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// serviceHandler stamps every record with the service name.
type serviceHandler struct {
	handler slog.Handler
	service string
}

func (h *serviceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(slog.String("service", h.service))
	return h.handler.Handle(ctx, r)
}

func (h *serviceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *serviceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &serviceHandler{handler: h.handler.WithAttrs(attrs), service: h.service}
}

func (h *serviceHandler) WithGroup(name string) slog.Handler {
	return &serviceHandler{handler: h.handler.WithGroup(name), service: h.service}
}

// Setup creates a configured slog.Logger.
// format: "json" or "text" (defaults to "json" if empty).
// If w is nil, writes to os.Stderr.
func Setup(service, format, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var base slog.Handler
	if format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&serviceHandler{handler: base, service: service})
}

// SetDefault builds a logger with Setup and installs it as slog's default.
func SetDefault(service, format, level string) *slog.Logger {
	logger := Setup(service, format, level, nil)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to slog.Level; unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
