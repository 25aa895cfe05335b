package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerFn processes one task and records its own failures, so one bad task
// never stops the others.
type WorkerFn[T any] func(ctx context.Context, task T)

// ForEach fans tasks out to at most workers goroutines and waits for all of
// them. Tasks not yet started when ctx is cancelled are skipped.
func ForEach[T any](ctx context.Context, workers int, tasks []T, fn WorkerFn[T]) error {
	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(ctx, task)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
