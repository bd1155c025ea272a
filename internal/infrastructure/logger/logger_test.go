package logger

import (
	"errors"
	"testing"

	"nutri_chat_server/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesUnderLogPath(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.LogConfig{LogPath: dir, Level: "debug"}

	require.NoError(t, Init(cfg, "release"))
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	assert.Equal(t, dir+"/app.log", cfg.FileName)
	assert.Equal(t, 100, cfg.MaxSize)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(&config.LogConfig{LogPath: t.TempDir(), Level: "loud"}, "release")
	assert.Error(t, err)
}

func TestRedactQuery(t *testing.T) {
	assert.Equal(t, "a=1&token=***", redactQuery("a=1&token=secret"))
	assert.Equal(t, "a=1", redactQuery("a=1"))
}

func TestIsBrokenPipeError(t *testing.T) {
	assert.True(t, isBrokenPipeError(errors.New("write: broken pipe")))
	assert.False(t, isBrokenPipeError(errors.New("timeout")))
	assert.False(t, isBrokenPipeError(nil))
}
