package bgtask

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type task = func(ctx context.Context) error

// WorkerPool runs long-lived tasks that share one lifecycle,
// the first task to fail cancels the context of all others.
type WorkerPool struct {
	Ctx      context.Context
	errGroup *errgroup.Group
}

func NewWorkerPool(ctx context.Context) *WorkerPool {
	g, ctx := errgroup.WithContext(ctx)
	return &WorkerPool{
		Ctx:      ctx,
		errGroup: g,
	}
}

// Spawn runs t in its own goroutine with the pool's context.
func (wp *WorkerPool) Spawn(t task) {
	wp.errGroup.Go(func() error {
		return t(wp.Ctx)
	})
}

// Wait blocks until every spawned task returns, the first non-nil error is returned.
func (wp *WorkerPool) Wait() error {
	return wp.errGroup.Wait()
}
