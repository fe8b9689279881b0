// Package fanout runs one task per item with capped concurrency, an
// independent timeout per task and isolated failures.
package fanout

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options tune a Map call. Zero values mean unlimited concurrency, no
// per-task timeout and no rate limit.
type Options struct {
	Limit   int
	Timeout time.Duration
	// Limiter, when set, is waited on before each task starts.
	Limiter *rate.Limiter
}

// Result is the outcome of one task.
type Result[R any] struct {
	Value R
	Err   error
}

// Map calls fn for every item and returns the results positionally. A task
// error, timeout or panic is recorded in its Result and never affects the
// other tasks. Map returns once every task has finished or timed out.
//
// A timed out task releases its slot at the deadline while fn may still be
// unwinding on its cancelled context, so in-flight calls can briefly exceed
// Limit. fn must honour ctx for that window to stay short.
func Map[T, R any](ctx context.Context, items []T, opts Options, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	var g errgroup.Group
	if opts.Limit > 0 {
		g.SetLimit(opts.Limit)
	}
	for i, item := range items {
		g.Go(func() error {
			results[i] = runTask(ctx, item, opts, fn)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runTask[T, R any](ctx context.Context, item T, opts Options, fn func(context.Context, T) (R, error)) Result[R] {
	taskCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if opts.Limiter != nil {
		if err := opts.Limiter.Wait(taskCtx); err != nil {
			return Result[R]{Err: fmt.Errorf("fanout: rate limit wait: %w", err)}
		}
	}

	done := make(chan Result[R], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- Result[R]{Err: fmt.Errorf("fanout: task panic: %v", p)}
			}
		}()
		v, err := fn(taskCtx, item)
		done <- Result[R]{Value: v, Err: err}
	}()

	select {
	case res := <-done:
		return res
	case <-taskCtx.Done():
		return Result[R]{Err: taskCtx.Err()}
	}
}
