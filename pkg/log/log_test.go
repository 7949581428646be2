package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsole(&buf, slog.LevelInfo)

	log.Debug("hidden")
	log.Info("Change state", "from", "BUILDING", "to", "VALIDATED")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "Change state")
	assert.Contains(t, out, "VALIDATED")
}

func TestNewKubernetes(t *testing.T) {
	t.Setenv("KUBERNETES_SERVICE_HOST", "10.0.0.1")
	log := New(slog.LevelInfo)
	_, ok := log.Handler().(*slog.JSONHandler)
	assert.True(t, ok)
}
