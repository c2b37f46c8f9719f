package cfl

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

//Pool bounds the number of goroutines of a build. Tasks spawned while every worker is
//busy run inline in the calling goroutine, so nested ForEach calls never deadlock.
type Pool struct {
	sem *semaphore.Weighted
}

//NewPool creates a pool of workers goroutines. workers < 1 runs everything inline.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	// the calling goroutine is a worker too
	return &Pool{sem: semaphore.NewWeighted(int64(workers - 1))}
}

//ForEach runs task(ctx, i) for i = 0, ..., n-1 and waits for all of them. It returns the
//first error, after which tasks that have not started yet are skipped.
func (pool *Pool) ForEach(ctx context.Context, n int, task func(ctx context.Context, i int) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		if err := gCtx.Err(); err != nil {
			break
		}
		if pool.sem.TryAcquire(1) {
			g.Go(func() error {
				defer pool.sem.Release(1)
				if err := gCtx.Err(); err != nil {
					return err
				}
				return task(gCtx, i)
			})
			continue
		}
		if err := task(gCtx, i); err != nil {
			g.Go(func() error { return err })
			break
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
