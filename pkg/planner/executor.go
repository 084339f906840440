package planner

import (
	"context"
	"fmt"

	"github.com/harun/vtool/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
)

// Invoker runs a single tool call.
type Invoker interface {
	Invoke(ctx context.Context, req toolexecutor.ToolCallRequest) toolexecutor.Outcome
}

// Replay re-executes every step of plan in order and returns the final step's
// value. It stops at the first step that fails.
func Replay(ctx context.Context, invoker Invoker, plan Plan) (float64, []StepResult, error) {
	if err := plan.Validate(); err != nil {
		return 0, nil, err
	}

	results := make([]StepResult, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return 0, results, err
		}

		args := make([]interface{}, len(step.Args))
		for j, a := range step.Args {
			args[j] = a
		}

		stepCtx := toolexecutor.ContextWithExecContext(ctx, &toolexecutor.ExecutionContext{Caller: "replay", Step: i})
		out := invoker.Invoke(stepCtx, toolexecutor.ToolCallRequest{ToolName: step.Tool, Arguments: args})

		results = append(results, StepResult{
			Index:    i,
			Tool:     step.Tool,
			Success:  out.Success,
			Value:    out.Value,
			Attempts: out.Attempts,
			Error:    out.ErrorMessage(),
			Duration: out.Duration,
		})

		if !out.Success {
			log.Warn().
				Int("step", i).
				Str("tool", step.Tool).
				Err(out.Err).
				Msg("Replay step failed")
			return 0, results, fmt.Errorf("%w: step %d (%s): %w", ErrStepFailed, i, step, out.Err)
		}
	}

	return results[plan.FinalStep].Value, results, nil
}
