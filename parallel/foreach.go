// Package parallel contains the bounded fan-out used by the batched numeric kernels.
package parallel

import "sync"

// ForEach runs body(i) for every i in [0, length) with at most limit goroutines in flight.
// It returns once every call has finished. Callers write results by index, so the
// outcome does not depend on scheduling.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1
	}
	if length <= 0 {
		return
	}
	if limit == 1 || length == 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			body(i)
		}(i)
	}

	wg.Wait()
}
