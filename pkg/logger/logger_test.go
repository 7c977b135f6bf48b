package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	Initialize(Config{Level: level, Format: "json", Output: buf})
	t.Cleanup(func() {
		Initialize(Config{Level: "disabled", Format: "json"})
	})
	return buf
}

func TestInfo_WritesFieldsAndCaller(t *testing.T) {
	buf := captureJSON(t, "debug")

	Info("cart loaded", map[string]interface{}{
		"session_id": "abc",
		"lines":      2,
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "cart loaded", entry["message"])
	assert.Equal(t, "abc", entry["session_id"])
	assert.Equal(t, float64(2), entry["lines"])
	assert.True(t, strings.Contains(entry["caller"].(string), "logger_test.go"))
}

func TestError_IncludesError(t *testing.T) {
	buf := captureJSON(t, "info")

	Error("snapshot write failed", errors.New("quota exceeded"), nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "quota exceeded", entry["error"])
}

func TestLevelFiltering(t *testing.T) {
	buf := captureJSON(t, "warn")

	Debug("hidden")
	Info("hidden too")
	assert.Empty(t, buf.String())

	Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithContext_CarriesFields(t *testing.T) {
	buf := captureJSON(t, "info")

	WithContext(map[string]interface{}{"request_id": "r-1"}).Info("handled")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "r-1", entry["request_id"])
}
