package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPoolRunsTasks(t *testing.T) {
	pool := NewWorkerPool(2, 10, nil)
	pool.Start()
	defer pool.Stop()

	var done int32
	for i := 0; i < 5; i++ {
		ok := pool.Submit(TaskFunc{Name: "count", Fn: func(ctx context.Context) error {
			atomic.AddInt32(&done, 1)
			return nil
		}})
		assert.True(t, ok)
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&done) == 5 }, time.Second, 10*time.Millisecond)
}

func TestWorkerPoolRetriesFailedTask(t *testing.T) {
	pool := NewWorkerPool(1, 10, nil)
	pool.RetryDelay = time.Millisecond
	pool.Start()
	defer pool.Stop()

	var attempts int32
	pool.Submit(TaskFunc{Name: "flaky", Fn: func(ctx context.Context) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("push gateway unavailable")
		}
		return nil
	}})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 3 }, time.Second, 5*time.Millisecond)
}

func TestWorkerPoolGivesUpAfterMaxRetry(t *testing.T) {
	pool := NewWorkerPool(1, 10, nil)
	pool.RetryDelay = time.Millisecond
	pool.MaxRetry = 2
	pool.Start()
	defer pool.Stop()

	var attempts int32
	pool.Submit(TaskFunc{Name: "broken", Fn: func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("always fails")
	}})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestWorkerPoolSurvivesPanic(t *testing.T) {
	pool := NewWorkerPool(1, 10, nil)
	pool.Start()
	defer pool.Stop()

	var ran int32
	pool.Submit(TaskFunc{Name: "panics", Fn: func(ctx context.Context) error { panic("boom") }})
	pool.Submit(TaskFunc{Name: "after", Fn: func(ctx context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	}})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&ran) == 1 }, time.Second, 5*time.Millisecond)
}

func TestSubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool(1, 1, nil)
	pool.Start()
	pool.Stop()

	assert.False(t, pool.Submit(TaskFunc{Name: "late", Fn: func(ctx context.Context) error { return nil }}))
}

func TestInlineDispatcher(t *testing.T) {
	var ran bool
	ok := Inline{}.Submit(TaskFunc{Name: "inline", Fn: func(ctx context.Context) error {
		ran = true
		return nil
	}})
	assert.True(t, ok)
	assert.True(t, ran)

	assert.False(t, Inline{}.Submit(TaskFunc{Name: "inline", Fn: func(ctx context.Context) error {
		return errors.New("nope")
	}}))
}
