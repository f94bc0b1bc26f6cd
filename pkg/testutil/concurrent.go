// Package testutil holds helpers shared by unit tests across packages.
package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "phonebook/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes  int32
	Rejections int32
	Errors     int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Rejections + r.Errors
}

// RunConcurrent executes fn in parallel goroutines released together and
// collects results. Validation and rate-limit errors count as rejections;
// anything else counts as an error.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, rejections, errs atomic.Int32
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeValidation), dErrors.HasCode(err, dErrors.CodeRateLimited):
				rejections.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes:  successes.Load(),
		Rejections: rejections.Load(),
		Errors:     errs.Load(),
	}
}
