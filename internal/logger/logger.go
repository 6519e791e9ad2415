// Package logger builds the structured logger used by every service.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup returns a text slog.Logger writing to stdout at the given level.
func Setup(level string) *slog.Logger {
	return New(os.Stdout, level)
}

// New returns a text slog.Logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MaxBodyLog is how many bytes of a message body Body keeps.
const MaxBodyLog = 256

// Body logs a message body as its length and a bounded prefix.
func Body(body []byte) slog.Attr {
	head := body
	if len(head) > MaxBodyLog {
		head = head[:MaxBodyLog]
	}
	return slog.Group("body",
		slog.Int("len", len(body)),
		slog.String("head", strings.ToValidUTF8(string(head), "")),
	)
}
