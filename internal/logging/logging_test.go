package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"DEBUG+2": slog.LevelDebug + 2,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestInitFromEnv_ConfiguresLogger(t *testing.T) {
	t.Setenv("TITANIC_LOG_LEVEL", "debug")
	t.Setenv("TITANIC_LOG_JSON", "true")
	InitFromEnv()
	t.Cleanup(func() { Configure(Options{}) })

	l := L()
	require.NotNil(t, l)
	_, isJSON := l.Handler().(*slog.JSONHandler)
	assert.True(t, isJSON)
	assert.NotNil(t, With("pipeline"))
}

func TestWith_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "debug", JSON: true, Output: &buf})
	t.Cleanup(func() { Configure(Options{}) })

	With("stream").Debug("batch processed", "records", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stream", line["component"])
	assert.Equal(t, "batch processed", line["msg"])
	assert.EqualValues(t, 3, line["records"])
}

func TestConfigure_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "warn", Output: &buf})
	t.Cleanup(func() { Configure(Options{}) })

	L().Info("hidden")
	assert.Zero(t, buf.Len())
	L().Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
