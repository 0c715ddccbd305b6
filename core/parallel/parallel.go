// Package parallel runs index-based work across a bounded set of goroutines.
//
// Tree fitting and cross-validation candidates are independent jobs; they
// go through ForEach with a worker count derived from an n_jobs setting.
// Row-wise loops over large matrices use ParallelizeWithThreshold.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"github.com/delvitaw/obesity/pkg/errors"
)

// Workers maps an n_jobs style setting to a goroutine count:
// -1 (or any negative value) means one per CPU, 0 means 1.
func Workers(nJobs int) int {
	switch {
	case nJobs < 0:
		return runtime.GOMAXPROCS(0)
	case nJobs == 0:
		return 1
	default:
		return nJobs
	}
}

// Parallelize splits [0, n) into contiguous chunks, one per CPU, and runs fn
// on each chunk concurrently.
func Parallelize(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, n) inline when n is below threshold
// and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(n, threshold int, fn func(start, end int)) {
	if n < threshold {
		fn(0, n)
		return
	}
	Parallelize(n, fn)
}

// ForEach calls fn(ctx, i) for every i in [0, n) using at most workers
// goroutines. It stops handing out new indices once ctx is done or a job
// fails, and returns every job error combined.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := fn(ctx, i); err != nil {
					mu.Lock()
					errs = errors.CombineErrors(errs, err)
					mu.Unlock()
					cancel()
				}
			}
		}()
	}

	dispatched := 0
feed:
	for ; dispatched < n; dispatched++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- dispatched:
		}
	}
	close(jobs)
	wg.Wait()

	if errs != nil {
		return errs
	}
	if dispatched < n {
		return context.Cause(ctx)
	}
	return nil
}
