package fetch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runBatches executes task for indexes [0,total) in consecutive groups of batchSize.
// Tasks within a group run concurrently; a group starts only after the previous one settles.
// Results are delivered to collect in completion order, and settled is called after each group.
func runBatches[T any](ctx context.Context, total int, batchSize int, task func(context.Context, int) T, collect func(T), settled func(done int)) {
	if batchSize <= 0 {
		batchSize = 1
	}
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		completed := make(chan T, end-start)
		var group errgroup.Group
		group.SetLimit(batchSize)
		for index := start; index < end; index++ {
			taskIndex := index
			group.Go(func() error {
				completed <- task(ctx, taskIndex)
				return nil
			})
		}
		_ = group.Wait()
		close(completed)
		for result := range completed {
			collect(result)
		}
		if settled != nil {
			settled(end)
		}
	}
}
