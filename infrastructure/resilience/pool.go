package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
)

// DefaultPoolQueue is the number of jobs that may wait for a slot when no
// queue size is configured.
const DefaultPoolQueue = 1024

// ErrPoolSaturated is returned for jobs the bulkhead turned away: the wait
// queue was full or the job waited longer than the queue timeout.
var ErrPoolSaturated = errors.New("pool saturated")

// PoolOption configures a Pool.
type PoolOption func(*poolConfig)

type poolConfig struct {
	maxQueue     int
	queueTimeout time.Duration
}

// WithMaxQueue bounds the number of jobs waiting for a slot.
func WithMaxQueue(n int) PoolOption {
	return func(c *poolConfig) {
		if n > 0 {
			c.maxQueue = n
		}
	}
}

// WithQueueTimeout bounds how long a job waits for a slot. Zero waits
// until the context ends.
func WithQueueTimeout(d time.Duration) PoolOption {
	return func(c *poolConfig) {
		if d > 0 {
			c.queueTimeout = d
		}
	}
}

// Pool runs independent jobs concurrently, at most size at a time. Every
// job gets its own goroutine; the bulkhead admits size of them and parks
// the rest in its queue.
type Pool[T any] struct {
	size     int
	bulkhead bulkhead.Bulkhead[T]
}

// NewPool creates a pool bounded to size concurrent jobs.
func NewPool[T any](size int, opts ...PoolOption) *Pool[T] {
	if size <= 0 {
		size = 1
	}
	cfg := poolConfig{maxQueue: DefaultPoolQueue}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Pool[T]{
		size: size,
		bulkhead: bulkhead.New[T](bulkhead.Config{
			MaxConcurrent: size,
			MaxQueue:      cfg.maxQueue,
			QueueTimeout:  cfg.queueTimeout,
		}),
	}
}

// Size returns the concurrency bound.
func (p *Pool[T]) Size() int {
	return p.size
}

// Map runs fn for every index in [0, n) and returns the results and errors
// in index order. Jobs not yet started when ctx is cancelled report the
// context error; jobs the bulkhead rejects report ErrPoolSaturated.
func (p *Pool[T]) Map(ctx context.Context, n int, fn func(ctx context.Context, i int) (T, error)) ([]T, []error) {
	results := make([]T, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}

			started := false
			results[i], errs[i] = p.bulkhead.Execute(ctx, func(ctx context.Context) (T, error) {
				started = true
				return fn(ctx, i)
			})
			if errs[i] == nil || started {
				return
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				errs[i] = ctxErr
				return
			}
			errs[i] = fmt.Errorf("%w: %w", ErrPoolSaturated, errs[i])
		}(i)
	}
	wg.Wait()
	return results, errs
}
