package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	// Logger functions must not panic before Configure
	Initialize()

	Info("Test info message", "component", "test")
	Warn("Test warning message", "component", "test")
	Error("Test error message", "error", "sample error")
	Debug("Test debug message", "debug", true)
	With("call_id", "x").Info("Test scoped message")
}

func TestConfigure(t *testing.T) {
	defer func() { require.NoError(t, Configure("info", "text", os.Stderr)) }()

	var buf bytes.Buffer
	require.NoError(t, Configure("warn", "json", &buf))

	Info("hidden")
	Warn("record ignored", "list", "blacklist", "offset", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "record ignored", entry["msg"])
	assert.Equal(t, "blacklist", entry["list"])
	assert.EqualValues(t, 42, entry["offset"])
}

func TestConfigureRejectsUnknownValues(t *testing.T) {
	assert.Error(t, Configure("loud", "text", nil))
	assert.Error(t, Configure("info", "xml", nil))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithMethods(t *testing.T) {
	defer func() { require.NoError(t, Configure("info", "text", os.Stderr)) }()

	var buf bytes.Buffer
	require.NoError(t, Configure("info", "json", &buf))
	assert.Same(t, Get(), Get())

	With("call_id", "abc").Info("Incoming call")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry["call_id"])
}
