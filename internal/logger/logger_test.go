package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerologLogger_Fields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewZerologLogger(&buf, LogLevelDebug)

	log.Info("trigger committed",
		String("trigger_id", "t1"),
		Int("clauses", 2),
		Bool("enabled", true),
		Error(fmt.Errorf("boom")))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "trigger committed", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "t1", lines[0]["trigger_id"])
	assert.EqualValues(t, 2, lines[0]["clauses"])
	assert.Equal(t, true, lines[0]["enabled"])
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestZerologLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewZerologLogger(&buf, LogLevelWarn)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown")

	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestZerologLogger_With(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewZerologLogger(&buf, LogLevelInfo).With(String("component", "lifecycle"))
	log.Info("hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "lifecycle", lines[0]["component"])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLevel("verbose"))
}
