package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevel(LevelWarn)
	assert.Equal(t, zapcore.WarnLevel, level.Level())
	SetLevel("bogus")
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}

func TestPairsDropsMalformed(t *testing.T) {
	assert.Equal(t, []any{"a", 1}, pairs([]any{"a", 1, 2, 3, "dangling"}))
	assert.Empty(t, pairs(nil))
}
