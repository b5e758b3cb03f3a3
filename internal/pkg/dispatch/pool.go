package dispatch

import (
	"context"
	"sync"
)

// runPool executes tasks with at most limit in flight at once, using the same
// channel-gated slot scheme as the job queue workers. Results are returned in
// task order; completion order is unspecified.
func runPool(ctx context.Context, limit int, tasks []task) []outcome {
	if len(tasks) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 1
	}

	slots := make(chan struct{}, limit)
	results := make([]outcome, len(tasks))
	var wg sync.WaitGroup

	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			results[i] = t(ctx)
		}(i, t)
	}

	wg.Wait()
	return results
}
