package planner

import "fmt"

// Builder accumulates the steps of a plan while a conversation runs.
// It is owned by a single conversation and not safe for concurrent use.
type Builder struct {
	steps  []Step
	values []float64
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Append records a successful step and its verified value, returning its index.
func (b *Builder) Append(step Step, value float64) int {
	b.steps = append(b.steps, Step{Tool: step.Tool, Args: append([]float64(nil), step.Args...)})
	b.values = append(b.values, value)
	return len(b.steps) - 1
}

// Len returns the number of recorded steps.
func (b *Builder) Len() int {
	return len(b.steps)
}

// Finalize produces the plan. A nil finalStep designates the last step.
func (b *Builder) Finalize(finalStep *int) (Plan, float64, error) {
	idx := len(b.steps) - 1
	if finalStep != nil {
		idx = *finalStep
	}

	plan := Plan{Steps: b.steps, FinalStep: idx}
	if err := plan.Validate(); err != nil {
		return Plan{}, 0, fmt.Errorf("finalize plan: %w", err)
	}

	return plan.Clone(), b.values[idx], nil
}
