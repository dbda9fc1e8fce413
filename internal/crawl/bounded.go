package crawl

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// outcome is the per-item result of a stage operation.
type outcome[T any] struct {
	value T
	err   error
}

// runBounded applies fn to every item with at most limit calls in flight.
// Results are returned in input order. Once ctx is cancelled no further items
// are admitted and their outcomes carry errNotAdmitted. Admitted calls get a
// context detached from ctx's cancellation, so they finish or time out on their own.
func runBounded[In, Out any](ctx context.Context, items []In, limit int, fn func(context.Context, In) (Out, error), done func()) []outcome[Out] {
	if limit < 1 {
		limit = 1
	}

	results := make([]outcome[Out], len(items))
	callCtx := context.WithoutCancel(ctx)
	slots := semaphore.NewWeighted(int64(limit))

	var g errgroup.Group
	for i, item := range items {
		if ctx.Err() != nil || slots.Acquire(ctx, 1) != nil {
			for j := i; j < len(items); j++ {
				results[j].err = errNotAdmitted
			}
			break
		}
		g.Go(func() error {
			v, err := fn(callCtx, item)
			slots.Release(1)
			results[i] = outcome[Out]{value: v, err: err}
			if done != nil {
				done()
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
