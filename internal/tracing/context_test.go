package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDs(t *testing.T) {
	assert.NotEmpty(t, NewTraceID())
	assert.NotEqual(t, NewTraceID(), NewTraceID())
	assert.NotEqual(t, NewRunID(), NewRunID())
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetRunID(ctx))
	assert.Empty(t, GetSignature(ctx))

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithRunID(ctx, "run-1")
	ctx = WithSignature(ctx, "what is 2 plus 3?")

	tc := FromContext(ctx)
	assert.Equal(t, "trace-1", tc.TraceID)
	assert.Equal(t, "run-1", tc.RunID)
	assert.Equal(t, "what is 2 plus 3?", tc.Signature)
}

func TestNewRequestAndRunContext(t *testing.T) {
	ctx := NewRunContext(NewRequestContext(context.Background()))
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetRunID(ctx))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithSignature(WithTraceID(context.Background(), "trace-42"), "sig")
	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"trace_id":"trace-42"`)
	assert.Contains(t, out, `"signature":"sig"`)
	assert.NotContains(t, out, "run_id")
}

func TestStartSpan(t *testing.T) {
	require.NoError(t, InitOpenTelemetry("vtool-test"))

	ctx, span := StartSpan(context.Background(), "vtool.test", "test.span")
	require.NotNil(t, span)
	assert.NotEmpty(t, GetTraceID(ctx))
	EndSpan(span, errors.New("boom"))

	// nil context falls back to background
	//nolint:staticcheck
	_, span = StartSpan(nil, "vtool.test", "nil.ctx")
	EndSpan(span, nil)
}
