// Package batchexec implements the bounded worker pool that drives batch
// district-resolution jobs (§5, §6.1): a fixed number of workers (default 3)
// pull tasks from a slice and run them concurrently, while the caller gets
// back one Result per input, in input order, regardless of which worker
// finished it. A single task's failure is reported on that task's Result and
// never aborts the rest of the batch, the same contract a per-URL/per-page
// fan-out worker pool gives its callers.
package batchexec

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultPoolSize is the worker count used when Pool.Size is unset.
const DefaultPoolSize = 3

// Pool bounds the concurrency of a Run call.
type Pool struct {
	Size int
}

// New builds a Pool with the given worker count. size <= 0 uses
// DefaultPoolSize.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{Size: size}
}

func (p *Pool) size() int {
	if p == nil || p.Size <= 0 {
		return DefaultPoolSize
	}
	return p.Size
}

// Func is the work performed for one task.
type Func[T any, R any] func(ctx context.Context, input T) (R, error)

// Result pairs a task's output with its original position and any error.
type Result[R any] struct {
	Index  int
	Output R
	Err    error
}

// Progress is invoked from a worker goroutine after each task completes;
// implementations must be safe for concurrent use. A nil Progress is a no-op.
type Progress func(completed, total int)

// Run executes fn over items with pool's worker count, preserving input
// order in the returned slice. It never returns an error itself — a failing
// task's error is carried on its Result so the rest of the batch keeps
// running, matching the "one bad row doesn't sink the batch" requirement.
func Run[T any, R any](ctx context.Context, pool *Pool, items []T, fn Func[T, R], onProgress Progress) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(pool.size())

	var completed int32
	total := len(items)

	for i, item := range items {
		g.Go(func() error {
			out, err := fn(gCtx, item)
			results[i] = Result[R]{Index: i, Output: out, Err: err}
			if onProgress != nil {
				n := atomic.AddInt32(&completed, 1)
				onProgress(int(n), total)
			}
			return nil //nolint:nilerr // per-task errors are reported on the Result, not the group
		})
	}

	_ = g.Wait()
	return results
}

// Errors reports every non-nil error in results, keyed by the index it came
// from (a map, so iteration order is not defined). Callers that need to log or surface batch-level
// failure summaries use this instead of re-scanning results themselves.
func Errors[R any](results []Result[R]) map[int]error {
	errs := make(map[int]error)
	for _, r := range results {
		if r.Err != nil {
			errs[r.Index] = r.Err
		}
	}
	return errs
}
