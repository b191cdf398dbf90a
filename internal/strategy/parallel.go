package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/resiliate/resiliate/internal/classify"
	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/delay"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/internal/rlerr"
	"github.com/resiliate/resiliate/pkg/rrequest"
)

// Parallel launches AttemptsCount concurrent attempts, staggering
// attempt k (k>=1) by min(Delays(k), deadline.Remaining()) before
// dispatch. The first Accept wins: remaining attempts are cancelled and
// their eventual responses are drained and closed in the background, so
// Request returns as soon as a winner is available rather than waiting
// for every straggler to unwind.
type Parallel struct {
	AttemptsCount int
	Delays        delay.Provider
}

// NewParallel builds a Parallel strategy.
func NewParallel(attemptsCount int, delays delay.Provider) (Parallel, error) {
	if attemptsCount < 1 {
		return Parallel{}, fmt.Errorf("strategy: parallel: %w", rlerr.ErrInvalidAttemptsCount)
	}
	return Parallel{AttemptsCount: attemptsCount, Delays: delays}, nil
}

type parallelOutcome struct {
	resp ResponseWithVerdict
	err  error
}

func (s Parallel) Request(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
	attemptCtx, cancel := context.WithCancel(ctx)

	results := make(chan parallelOutcome, s.AttemptsCount)
	var wg sync.WaitGroup
	for attempt := 0; attempt < s.AttemptsCount; attempt++ {
		wg.Add(1)
		go func(attempt int) {
			defer wg.Done()
			if attempt > 0 {
				wait := s.Delays(attempt)
				if rem := d.Remaining(); wait > rem {
					wait = rem
				}
				timer := time.NewTimer(wait)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-attemptCtx.Done():
					results <- parallelOutcome{err: attemptCtx.Err()}
					return
				}
			}
			resp, err := send(attemptCtx, endpoint, req, d, p)
			results <- parallelOutcome{resp: resp, err: err}
		}(attempt)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var rejected []ResponseWithVerdict
	var lastErr error
	for o := range results {
		if o.err != nil {
			lastErr = o.err
			continue
		}
		if o.resp.Verdict == classify.Accept {
			cancel()
			go drainParallel(results, rejected)
			return o.resp, nil
		}
		rejected = append(rejected, o.resp)
	}
	cancel()

	if len(rejected) > 0 {
		final := rejected[0]
		closeAll(rejected[1:])
		return final, nil
	}
	if lastErr != nil {
		return ResponseWithVerdict{}, lastErr
	}
	return ResponseWithVerdict{}, fmt.Errorf("strategy: parallel: no attempt completed")
}

// drainParallel closes every response still arriving on results after
// Request has already returned a winner, plus every rejection gathered
// before the winner was found.
func drainParallel(results <-chan parallelOutcome, alreadyRejected []ResponseWithVerdict) {
	closeAll(alreadyRejected)
	for o := range results {
		if o.err == nil {
			_ = o.resp.Close()
		}
	}
}
