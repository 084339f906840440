package commandqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueue_BasicEnqueue(t *testing.T) {
	cq := New()
	defer cq.Close()

	executed := false
	task := func(ctx context.Context) (interface{}, error) {
		executed = true
		return "result", nil
	}

	result, err := cq.Enqueue(context.Background(), "test", task)

	assert.NoError(t, err)
	assert.Equal(t, "result", result)
	assert.True(t, executed)
}

func TestCommandQueue_TaskError(t *testing.T) {
	cq := New()
	defer cq.Close()

	expectedErr := errors.New("task failed")
	task := func(ctx context.Context) (interface{}, error) {
		return nil, expectedErr
	}

	result, err := cq.Enqueue(context.Background(), "test", task)

	assert.ErrorIs(t, err, expectedErr)
	assert.Nil(t, result)
}

func TestCommandQueue_SerialExecution(t *testing.T) {
	cq := New()
	defer cq.Close()

	var running, maxRunning int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := func(ctx context.Context) (interface{}, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxRunning)
					if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil, nil
			}
			_, _ = cq.Enqueue(context.Background(), "serial", task)
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestCommandQueue_FIFOOrder(t *testing.T) {
	cq := New()
	defer cq.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	var order []int
	var mu sync.Mutex

	// Block the lane so the following tasks queue up in a known order.
	go func() {
		_, _ = cq.Enqueue(context.Background(), "fifo", func(ctx context.Context) (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_, _ = cq.Enqueue(context.Background(), "fifo", func(ctx context.Context) (interface{}, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			})
		}()
		require.Eventually(t, func() bool { return cq.GetQueueSize("fifo") == i+1 }, time.Second, time.Millisecond)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestCommandQueue_ConcurrentLanes(t *testing.T) {
	cq := New()
	defer cq.Close()

	lane1Started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = cq.Enqueue(context.Background(), "lane1", func(ctx context.Context) (interface{}, error) {
			close(lane1Started)
			<-release
			return nil, nil
		})
	}()
	<-lane1Started

	// lane2 must not wait behind the blocked lane1 task.
	result, err := cq.Enqueue(context.Background(), "lane2", func(ctx context.Context) (interface{}, error) {
		return "lane2", nil
	})
	close(release)

	require.NoError(t, err)
	assert.Equal(t, "lane2", result)
}

func TestCommandQueue_IdleLaneDropped(t *testing.T) {
	cq := New()
	defer cq.Close()

	_, err := cq.Enqueue(context.Background(), "ephemeral", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := cq.GetStats()["ephemeral"]
		return !ok
	}, time.Second, time.Millisecond)
}

func TestCommandQueue_CancelledBeforeStart(t *testing.T) {
	cq := New()
	defer cq.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = cq.Enqueue(context.Background(), "busy", func(ctx context.Context) (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	done := make(chan error, 1)
	go func() {
		_, err := cq.Enqueue(ctx, "busy", func(ctx context.Context) (interface{}, error) {
			ran.Store(true)
			return nil, nil
		})
		done <- err
	}()
	require.Eventually(t, func() bool { return cq.GetQueueSize("busy") == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return cq.GetQueueSize("busy") == 0 }, time.Second, time.Millisecond)
	assert.False(t, ran.Load())
}

func TestCommandQueue_Close(t *testing.T) {
	cq := New()
	require.NoError(t, cq.Close())

	_, err := cq.Enqueue(context.Background(), "test", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrClosed)
}
