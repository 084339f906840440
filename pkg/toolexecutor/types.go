package toolexecutor

import (
	"errors"
	"time"
)

var (
	// ErrArityMismatch is returned when arguments do not match the parameter spec.
	ErrArityMismatch = errors.New("arity mismatch")
	// ErrVerificationExhausted is returned when no two attempts of an unreliable tool agree.
	ErrVerificationExhausted = errors.New("verification exhausted")
	// ErrComputation wraps an error raised by the tool computation itself.
	ErrComputation = errors.New("computation error")
)

// ToolCallRequest is one tool call issued by the collaborator.
type ToolCallRequest struct {
	ToolName  string        `json:"tool"`
	Arguments []interface{} `json:"args"`
}

// Outcome is the result of an invocation. Build it with succeeded or failed.
type Outcome struct {
	Success  bool          `json:"success"`
	Tool     string        `json:"tool"`
	Args     []float64     `json:"args,omitempty"`
	Value    float64       `json:"value,omitempty"`
	Err      error         `json:"-"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

func succeeded(tool string, args []float64, value float64, attempts int) Outcome {
	return Outcome{Success: true, Tool: tool, Args: args, Value: value, Attempts: attempts}
}

func failed(tool string, args []float64, err error, attempts int) Outcome {
	return Outcome{Success: false, Tool: tool, Args: args, Err: err, Attempts: attempts}
}

// ErrorMessage returns the failure text, or "" for a successful outcome.
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
