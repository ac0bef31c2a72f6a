package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyHandlerRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.Info("login", "email", "ops@dejure.test", "password", "hunter2", "Authorization", "Bearer abc.def.ghi", "session_token", "abc.def.ghi")

	out := buf.String()
	assert.Contains(t, out, "ops@dejure.test")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "abc.def.ghi")
	assert.Contains(t, out, redacted)
}

func TestPrettyHandlerLevelsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.WithGroup("guard").With("role", "admin").Warn("denied", slog.Group("fetch", "family", "admin"))
	out := buf.String()
	assert.Contains(t, out, "denied")
	assert.Contains(t, out, "guard.role")
	assert.Contains(t, out, "guard.fetch.family")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
