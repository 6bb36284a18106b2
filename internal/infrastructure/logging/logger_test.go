package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("valid level", func(t *testing.T) {
		l, err := New(Config{Level: "warn", OutputPaths: []string{"stderr"}})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("empty level means info", func(t *testing.T) {
		l, err := New(Config{})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New(Config{Level: "loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loud")
	})
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil).Logger)
	assert.NotNil(t, OrNop(&Logger{}).Logger)

	l, err := New(DevelopmentConfig())
	require.NoError(t, err)
	assert.Same(t, l, OrNop(l))
}

func TestLeveled(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := NewLeveled(&Logger{Logger: zap.New(core)})

	a.Debug("performing request", "method", "GET", "url", "http://x")
	a.Warn("retrying", "attempt", 2)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "performing request", entries[0].Message)
	assert.Equal(t, "GET", entries[0].ContextMap()["method"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(2), entries[1].ContextMap()["attempt"])
}
