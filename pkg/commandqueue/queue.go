package commandqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/vtool/internal/observability"
	"github.com/harun/vtool/internal/tracing"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// ErrClosed is returned when enqueuing on a closed queue.
var ErrClosed = errors.New("command queue closed")

// Task represents an operation to be executed in a lane
type Task func(ctx context.Context) (interface{}, error)

// taskRecord tracks a task's execution state
type taskRecord struct {
	id         string
	task       Task
	ctx        context.Context
	enqueuedAt time.Time
	result     chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

// laneState holds the pending tasks of one lane
type laneState struct {
	queue   []*taskRecord
	running bool
}

// CommandQueue provides lane-based task serialization
type CommandQueue struct {
	mu        sync.Mutex
	lanes     map[string]*laneState
	taskIDSeq int
	closed    bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new CommandQueue
func New() *CommandQueue {
	observability.EnsureRegistered()

	ctx, cancel := context.WithCancel(context.Background())
	return &CommandQueue{
		lanes:  make(map[string]*laneState),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue adds a task to lane and blocks until it has run. If ctx is done
// before the task starts, the task is skipped and ctx.Err() returned.
func (cq *CommandQueue) Enqueue(ctx context.Context, lane string, task Task) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartSpan(ctx, "vtool.commandqueue", "commandqueue.enqueue", attribute.String("lane", lane))
	logger := tracing.LoggerFromContext(ctx, log.Logger).With().Str("lane", lane).Logger()

	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		tracing.EndSpan(span, ErrClosed)
		return nil, ErrClosed
	}

	cq.taskIDSeq++
	record := &taskRecord{
		id:         fmt.Sprintf("%s-%d", lane, cq.taskIDSeq),
		task:       task,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		result:     make(chan taskResult, 1),
	}

	ls, ok := cq.lanes[lane]
	if !ok {
		ls = &laneState{}
		cq.lanes[lane] = ls
	}
	ls.queue = append(ls.queue, record)
	queueSize := len(ls.queue)
	start := !ls.running
	if start {
		ls.running = true
		cq.wg.Add(1)
	}
	cq.mu.Unlock()

	logger.Debug().Str("taskId", record.id).Int("queueSize", queueSize).Msg("Task enqueued")
	observability.RecordQueueEnqueue(lane, queueSize)

	if start {
		go cq.processLane(lane)
	}

	var res taskResult
	select {
	case res = <-record.result:
	case <-ctx.Done():
		res = taskResult{err: ctx.Err()}
	}

	tracing.EndSpan(span, res.err)
	return res.value, res.err
}

// processLane runs the tasks of lane one by one until the lane is empty,
// then drops it.
func (cq *CommandQueue) processLane(lane string) {
	defer cq.wg.Done()

	for {
		cq.mu.Lock()
		ls := cq.lanes[lane]
		if len(ls.queue) == 0 {
			delete(cq.lanes, lane)
			cq.mu.Unlock()
			return
		}
		record := ls.queue[0]
		ls.queue = ls.queue[1:]
		queueSize := len(ls.queue)
		cq.mu.Unlock()

		cq.executeTask(lane, record, queueSize)
	}
}

// executeTask executes a single task
func (cq *CommandQueue) executeTask(lane string, record *taskRecord, queueSize int) {
	if err := record.ctx.Err(); err != nil {
		record.result <- taskResult{err: err}
		return
	}

	runCtx, cancel := context.WithCancel(record.ctx)
	stopCancel := context.AfterFunc(cq.ctx, cancel)
	defer func() {
		stopCancel()
		cancel()
	}()

	logger := tracing.LoggerFromContext(runCtx, log.Logger).With().Str("lane", lane).Logger()
	waited := time.Since(record.enqueuedAt)
	startTime := time.Now()

	value, err := record.task(runCtx)

	duration := time.Since(startTime)
	record.result <- taskResult{value: value, err: err}

	if err != nil {
		logger.Error().
			Str("taskId", record.id).
			Dur("duration", duration).
			Err(err).
			Msg("Task failed")
	} else {
		logger.Debug().
			Str("taskId", record.id).
			Dur("waited", waited).
			Dur("duration", duration).
			Msg("Task completed")
	}

	observability.RecordQueueCompletion(lane, duration, err == nil, queueSize)
}

// GetQueueSize returns the number of tasks waiting in a lane
func (cq *CommandQueue) GetQueueSize(lane string) int {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	if ls, ok := cq.lanes[lane]; ok {
		return len(ls.queue)
	}
	return 0
}

// GetStats returns the number of waiting tasks per active lane
func (cq *CommandQueue) GetStats() map[string]int {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	stats := make(map[string]int, len(cq.lanes))
	for lane, ls := range cq.lanes {
		stats[lane] = len(ls.queue)
	}
	return stats
}

// Close rejects new tasks, cancels running ones and waits for lanes to drain
func (cq *CommandQueue) Close() error {
	cq.mu.Lock()
	cq.closed = true
	cq.mu.Unlock()

	cq.cancel()
	cq.wg.Wait()
	return nil
}
