package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	logger, err := NewLogger(&Config{
		Level:       "debug",
		Format:      "json",
		Output:      "stdout",
		ServiceName: "socialscan-test",
		Version:     "test",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	return logger, &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLogger_KeyValuePairs(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	logger.Info("cache invalidated", "platform", "tiktok", "entries_removed", 3)

	entry := lastLine(t, buf)
	assert.Equal(t, "cache invalidated", entry["message"])
	assert.Equal(t, "tiktok", entry["platform"])
	assert.Equal(t, float64(3), entry["entries_removed"])
	assert.Equal(t, "socialscan-test", entry["service"])
}

func TestLogger_DanglingKeyIsDropped(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	logger.Warn("odd pairs", "key1", "value1", "dangling")

	entry := lastLine(t, buf)
	assert.Equal(t, "value1", entry["key1"])
	_, present := entry["dangling"]
	assert.False(t, present)
}

func TestLogger_WithContext(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithScanID(ctx, "scan-456")
	logger.WithContext(ctx).Info("contextual")

	entry := lastLine(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "scan-456", entry["scan_id"])
}

func TestLogger_LogScanEvent(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	logger.LogScanEvent(context.Background(), "scan_finished", "s1", "u1", map[string]interface{}{
		"status": "completed",
	})

	entry := lastLine(t, buf)
	assert.Equal(t, "scan_finished", entry["event"])
	assert.Equal(t, "s1", entry["scan_id"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, "completed", entry["status"])
}

func TestLogger_LogFetchEvent_FailureIsWarning(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	logger.LogFetchEvent(context.Background(), "tiktok", "user_posts", "u1", false, 250*time.Millisecond, nil)

	entry := lastLine(t, buf)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, float64(250), entry["duration_ms"])
}

func TestLogger_InvalidLevelRejected(t *testing.T) {
	_, err := NewLogger(&Config{Level: "loud", Format: "json", Output: "stdout"})
	assert.Error(t, err)
}
