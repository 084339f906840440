package toolexecutor

import "context"

type execContextKey struct{}

// ExecutionContext describes who is invoking a tool.
type ExecutionContext struct {
	Caller string // "conversation" or "replay"
	Step   int    // index of the step within the plan being built or replayed
}

// ContextWithExecContext attaches the execution context to a context.Context.
func ContextWithExecContext(ctx context.Context, execCtx *ExecutionContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if execCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, execContextKey{}, execCtx)
}

// ExecContextFromContext extracts the execution context from a context.Context.
func ExecContextFromContext(ctx context.Context) *ExecutionContext {
	if ctx == nil {
		return nil
	}
	if v := ctx.Value(execContextKey{}); v != nil {
		if execCtx, ok := v.(*ExecutionContext); ok {
			return execCtx
		}
	}
	return nil
}
