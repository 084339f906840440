// Package commandqueue provides lane-based task execution with FIFO ordering per lane.
//
// Invariants:
// - Tasks in the same lane execute one at a time in FIFO order.
// - Tasks in different lanes may execute concurrently.
// - Idle lanes are dropped, so lanes keyed by question signature do not accumulate.
//
// Usage:
//
//	queue := commandqueue.New()
//	defer queue.Close()
//	result, err := queue.Enqueue(ctx, "signature:what is 2 plus 3?", func(ctx context.Context) (interface{}, error) {
//		return "ok", nil
//	})
package commandqueue
