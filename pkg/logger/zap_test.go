package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToZapLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"quiet":   zapcore.ErrorLevel,
		"normal":  zapcore.WarnLevel,
		"":        zapcore.WarnLevel,
		"verbose": zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"info":    zapcore.InfoLevel,
		"bogus":   zapcore.WarnLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, toZapLevel(in), in)
	}
}

func TestFromContext(t *testing.T) {
	assert.IsType(t, &noOpLogger{}, FromContext(context.Background()))

	l := NewZapLogger(LevelQuiet)
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestZapLoggerWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &ZapLogger{logger: zap.New(core).Sugar()}

	l.With("source", "world.mbtiles").Warn("tile missing", "z", 3)
	l.Info("plain")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "tile missing", entries[0].Message)
	assert.Equal(t, map[string]any{"source": "world.mbtiles", "z": int64(3)}, entries[0].ContextMap())
	assert.Empty(t, entries[1].ContextMap())
}

func TestNopWith(t *testing.T) {
	assert.Same(t, Nop(), Nop().With("a", 1))
}
