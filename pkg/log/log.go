package log

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a JSON logger when running in Kubernetes and a colored
// console logger otherwise.
func New(level slog.Level) *slog.Logger {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return NewConsole(os.Stdout, level)
}

// NewConsole returns a human readable logger writing to w.
func NewConsole(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339Nano,
	}))
}
