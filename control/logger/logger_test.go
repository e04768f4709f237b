package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		"info":   zapcore.InfoLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"":       zapcore.InfoLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, "%q", s)
		require.Equal(t, lvl, got, "%q", s)
	}

	_, ok := ParseLogLevel("loud")
	require.False(t, ok)
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithName(ctx, "clock")
	ctx = WithKV(ctx, "tick", 3)

	InfoKV(ctx, "alarm armed", "alarm", "07:30")
	Warnf(ctx, "fallback to %s", "UTC+02:00")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "clock", entries[0].LoggerName)
	require.Equal(t, "alarm armed", entries[0].Message)
	require.Equal(t, map[string]any{"tick": int64(3), "alarm": "07:30"}, entries[0].ContextMap())
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "fallback to UTC+02:00", entries[1].Message)
}
