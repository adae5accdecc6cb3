package sweep

import (
	"context"
	"sync"

	"github.com/netsweep/netsweep/internal/scanning"
)

// runPhase executes n independent work items with at most o.workers
// concurrent engine invocations. Results are returned in input order
// after all items complete (the join barrier between phases). The
// first failure cancels the remaining items and aborts the phase; each
// successful result is published before its slot counts as done.
func (o *Orchestrator) runPhase(ctx context.Context, name string, n int,
	job func(ctx context.Context, i int) (*scanning.Result, error)) ([]*scanning.Result, error) {

	o.logger.InfoSweep("Phase starting", name, "items", n)
	if n == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*scanning.Result, n)
	jobs := make(chan int)
	errs := make(chan error, 1)

	workers := o.workers
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				result, err := o.runItem(ctx, name, i, job)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					cancel()
					return
				}
				results[i] = result
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errs:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.logger.InfoSweep("Phase complete", name, "items", n)
	return results, nil
}

// runItem runs one scan and hands its result to the publisher before
// the next item on this worker starts.
func (o *Orchestrator) runItem(ctx context.Context, phase string, i int,
	job func(ctx context.Context, i int) (*scanning.Result, error)) (*scanning.Result, error) {

	result, err := job(ctx, i)
	if err != nil {
		o.logger.ErrorScan("Scan failed, aborting sweep", "", err, "phase", phase)
		return nil, err
	}

	if err := o.publisher.Publish(ctx, result); err != nil {
		o.logger.ErrorScan("Publish failed, aborting sweep", result.Target, err, "phase", phase)
		return nil, err
	}

	return result, nil
}
