package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]string {
	t.Helper()
	var out []map[string]string
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		m := map[string]string{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, INFO, true)

	l.Debug("hidden")
	l.Info("user registered", "user_id", "u-1", "email", "jane.doe@example.com")
	l.Error("send failed", "err", errors.New("boom"), "password", "hunter22")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "u-1", lines[0]["user_id"])
	assert.Equal(t, "ja***@example.com", lines[0]["email"])
	assert.Equal(t, "boom", lines[1]["err"])
	assert.Equal(t, "[REDACTED]", lines[1]["password"])
}

func TestRedactionDisabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG, false)
	l.Debug("x", "note", "contact bob@example.com")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "contact bob@example.com", lines[0]["note"])
}

func TestEmbeddedEmailRedacted(t *testing.T) {
	assert.Equal(t, "contact bo***@example.com now", redactPIIValue("note", "contact bob@example.com now"))
}

func TestRedactHelpers(t *testing.T) {
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
	assert.Equal(t, "***789", RedactPhone("+44 (0) 123 456 789"))
	assert.Equal(t, "***", RedactPhone("12"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestWithBindsFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, INFO, true)
	rt := base.With("component", "realtime", "owner_email", "jane.doe@example.com")

	rt.Warn("subscribe failed", "user_id", "u-9")
	base.Info("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "realtime", lines[0]["component"])
	assert.Equal(t, "ja***@example.com", lines[0]["owner_email"])
	assert.Equal(t, "u-9", lines[0]["user_id"])
	_, ok := lines[1]["component"]
	assert.False(t, ok)
}
