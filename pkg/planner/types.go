package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmptyPlan is returned when a plan has no steps.
	ErrEmptyPlan = errors.New("plan has no steps")
	// ErrInvalidFinalStep is returned when the designated final step is out of range.
	ErrInvalidFinalStep = errors.New("invalid final step index")
	// ErrStepFailed is returned when a replayed step does not succeed.
	ErrStepFailed = errors.New("plan step failed")
)

// Origin tells where an answer came from.
type Origin string

const (
	OriginFreshPlan   Origin = "FRESH_PLAN"
	OriginVirtualTool Origin = "VIRTUAL_TOOL"
)

// Step is one executed tool call.
type Step struct {
	Tool string    `json:"tool" yaml:"tool"`
	Args []float64 `json:"args" yaml:"args"`
}

// Equal reports whether two steps call the same tool with the same arguments.
func (s Step) Equal(other Step) bool {
	if s.Tool != other.Tool || len(s.Args) != len(other.Args) {
		return false
	}
	for i := range s.Args {
		if s.Args[i] != other.Args[i] {
			return false
		}
	}
	return true
}

func (s Step) String() string {
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = strconv.FormatFloat(a, 'g', -1, 64)
	}
	return fmt.Sprintf("%s(%s)", s.Tool, strings.Join(args, ", "))
}

// Plan is the ordered list of successful steps that produced an answer.
// FinalStep is the 0-based index of the step whose value is the answer.
type Plan struct {
	Steps     []Step `json:"steps" yaml:"steps"`
	FinalStep int    `json:"final_step" yaml:"final_step"`
}

// Validate checks the plan has steps and a final step within range.
func (p Plan) Validate() error {
	if len(p.Steps) == 0 {
		return ErrEmptyPlan
	}
	if p.FinalStep < 0 || p.FinalStep >= len(p.Steps) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidFinalStep, p.FinalStep, len(p.Steps))
	}
	return nil
}

// Equal compares step sequences and final step index.
func (p Plan) Equal(other Plan) bool {
	if p.FinalStep != other.FinalStep || len(p.Steps) != len(other.Steps) {
		return false
	}
	for i := range p.Steps {
		if !p.Steps[i].Equal(other.Steps[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (p Plan) Clone() Plan {
	out := Plan{FinalStep: p.FinalStep, Steps: make([]Step, len(p.Steps))}
	for i, s := range p.Steps {
		out.Steps[i] = Step{Tool: s.Tool, Args: append([]float64(nil), s.Args...)}
	}
	return out
}

func (p Plan) String() string {
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		parts[i] = s.String()
	}
	return fmt.Sprintf("[%s] final=%d", strings.Join(parts, " -> "), p.FinalStep)
}

// Answer is a fully verified result.
type Answer struct {
	Value     float64 `json:"value" yaml:"value"`
	Origin    Origin  `json:"origin" yaml:"origin"`
	Plan      Plan    `json:"plan" yaml:"plan"`
	Signature string  `json:"signature" yaml:"signature"`
}

// StepResult represents the result of executing a step
type StepResult struct {
	Index    int           `json:"index"`
	Tool     string        `json:"tool"`
	Success  bool          `json:"success"`
	Value    float64       `json:"value"`
	Attempts int           `json:"attempts"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
