package parallel

import (
	"runtime"
	"sync"
)

// ParallelizeN divides items into contiguous ranges and runs fn on each range
// in its own goroutine. nJobs follows the scikit-learn n_jobs convention:
// values <= 0 (or above NumCPU) mean one worker per CPU core, 1 runs
// fn(0, items) on the calling goroutine.
func ParallelizeN(items, nJobs int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := Workers(nJobs)
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}
	if numWorkers == 1 {
		fn(0, items)
		return
	}

	// Calculate the number of items each worker handles (ceiling division)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}

		// Skip if there's no range to handle
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	// Wait for all workers to finish processing
	wg.Wait()
}

// Workers resolves an n_jobs value to a goroutine count.
func Workers(nJobs int) int {
	cpus := runtime.NumCPU()
	if nJobs <= 0 || nJobs > cpus {
		return cpus
	}
	return nJobs
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items does not exceed threshold, and behaves like ParallelizeN otherwise.
func ParallelizeWithThreshold(items, threshold, nJobs int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	ParallelizeN(items, nJobs, fn)
}
