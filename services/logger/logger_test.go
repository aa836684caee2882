package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("debug").String())
	assert.Equal(t, "warn", parseLevel("warn").String())
	assert.Equal(t, "error", parseLevel("error").String())
	assert.Equal(t, "info", parseLevel("").String())
	assert.Equal(t, "info", parseLevel("verbose").String())
}

func TestZapLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payouts.log")
	l := NewZapLogger(Options{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1})

	l.Debug("hidden %d", 1)
	l.Info("withdrawal %d created", 42)
	l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "withdrawal 42 created")
	assert.NotContains(t, string(data), "hidden")
}

func TestRecordingLogger(t *testing.T) {
	r := &RecordingLogger{}
	r.Warn("retrying provider %d", 7)
	r.Error("boom")

	assert.Len(t, r.Lines(), 2)
	assert.True(t, r.Contains("[WARN] retrying provider 7"))
	assert.False(t, r.Contains("[INFO]"))
}
