package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBufLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestFrom_EmptyContext_ReturnsDefault(t *testing.T) {
	require.Same(t, slog.Default(), From(context.Background()))
}

func TestInto_From_RoundTrip(t *testing.T) {
	l, _ := newBufLogger()
	ctx := Into(context.Background(), l)

	require.Same(t, l, From(ctx))
}

func TestFrom_NilLoggerInContext_FallsBackToDefault(t *testing.T) {
	ctx := Into(context.Background(), nil)
	require.Same(t, slog.Default(), From(ctx))
}

func TestWith_AddsAttrs(t *testing.T) {
	l, buf := newBufLogger()
	ctx := Into(context.Background(), l)

	ctx = With(ctx, "user_id", "u-1")
	From(ctx).Info("hello")

	out := buf.String()
	require.True(t, strings.Contains(out, "user_id=u-1"), out)
	require.True(t, strings.Contains(out, "msg=hello"), out)
}

func TestWith_NoArgs_KeepsContext(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, ctx, With(ctx))
}
