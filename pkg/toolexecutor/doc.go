// Package toolexecutor invokes catalog tools and verifies unreliable results.
//
// Invariants:
// - Arguments are schema-validated against the tool's parameter spec before execution.
// - Reliable tools run exactly once; computation errors become failed outcomes.
// - Unreliable tools are re-invoked up to the attempt budget and a value is only
//   accepted once a second invocation reproduces it.
// - An Outcome is either a value or a failure, never both.
//
// Usage:
//
//	exec := toolexecutor.New(toolexecutor.Config{Catalog: catalog.Default()})
//	out := exec.Invoke(ctx, toolexecutor.ToolCallRequest{ToolName: "SUM", Arguments: []interface{}{2, 3}})
//	if out.Success {
//		fmt.Println(out.Value)
//	}
package toolexecutor
