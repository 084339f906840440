package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/harun/vtool/pkg/catalog"
	"github.com/harun/vtool/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvoker struct {
	calls []toolexecutor.ToolCallRequest
	inner Invoker
}

func (r *recordingInvoker) Invoke(ctx context.Context, req toolexecutor.ToolCallRequest) toolexecutor.Outcome {
	r.calls = append(r.calls, req)
	return r.inner.Invoke(ctx, req)
}

func newExecutor(faults toolexecutor.FaultModel) *toolexecutor.Executor {
	logger := zerolog.Nop()
	return toolexecutor.New(toolexecutor.Config{Catalog: catalog.Default(), Faults: faults, Logger: &logger})
}

func TestReplay(t *testing.T) {
	inv := &recordingInvoker{inner: newExecutor(nil)}
	plan := Plan{
		Steps: []Step{
			{Tool: "DELTA", Args: []float64{3, 10}},
			{Tool: "PRODUCT", Args: []float64{7, 4}},
		},
		FinalStep: 1,
	}

	value, results, err := Replay(context.Background(), inv, plan)
	require.NoError(t, err)
	assert.Equal(t, 28.0, value)
	require.Len(t, results, 2)
	assert.Equal(t, 7.0, results[0].Value)
	assert.Equal(t, 2, results[1].Attempts)
	assert.Len(t, inv.calls, 2)
	assert.Equal(t, []interface{}{7.0, 4.0}, inv.calls[1].Arguments)
}

func TestReplayDesignatedFinalStep(t *testing.T) {
	plan := Plan{
		Steps: []Step{
			{Tool: "ABS", Args: []float64{-6}},
			{Tool: "SUM", Args: []float64{6, 4}},
		},
		FinalStep: 0,
	}

	value, results, err := Replay(context.Background(), newExecutor(nil), plan)
	require.NoError(t, err)
	assert.Equal(t, 6.0, value)
	assert.Len(t, results, 2, "every step runs even when an earlier one is final")
}

func TestReplayMatchesFreshRun(t *testing.T) {
	exec := newExecutor(nil)
	plan := Plan{Steps: []Step{{Tool: "POWER", Args: []float64{2, 8}}, {Tool: "MODULO", Args: []float64{7, 3}}}, FinalStep: 0}

	first, _, err := Replay(context.Background(), exec, plan)
	require.NoError(t, err)
	second, _, err := Replay(context.Background(), exec, plan)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 256.0, first)
}

func TestReplayStopsAtFailedStep(t *testing.T) {
	never := toolexecutor.FaultFunc(func(_ string, attempt int, _ float64) float64 { return float64(attempt) })
	inv := &recordingInvoker{inner: newExecutor(never)}
	plan := Plan{
		Steps: []Step{
			{Tool: "SUM", Args: []float64{1, 2}},
			{Tool: "ABS", Args: []float64{-1}},
		},
		FinalStep: 1,
	}

	_, results, err := Replay(context.Background(), inv, plan)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepFailed))
	assert.True(t, errors.Is(err, toolexecutor.ErrVerificationExhausted))
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Len(t, inv.calls, 1)
}

func TestReplayInvalidPlan(t *testing.T) {
	_, _, err := Replay(context.Background(), newExecutor(nil), Plan{})
	assert.True(t, errors.Is(err, ErrEmptyPlan))

	_, _, err = Replay(context.Background(), newExecutor(nil), Plan{Steps: []Step{{Tool: "ABS", Args: []float64{1}}}, FinalStep: 3})
	assert.True(t, errors.Is(err, ErrInvalidFinalStep))
}

func TestReplayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Replay(ctx, newExecutor(nil), Plan{Steps: []Step{{Tool: "ABS", Args: []float64{1}}}})
	assert.True(t, errors.Is(err, context.Canceled))
}
