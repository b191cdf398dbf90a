package strategy

import (
	"context"
	"time"

	"github.com/resiliate/resiliate/internal/classify"
	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/delay"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/pkg/rrequest"
)

// RetryUntilDeadlineExpired repeatedly runs Base until it yields an
// Accept verdict or the outer deadline expires, sleeping Delays(attempt)
// (capped to the remaining deadline) between iterations. The attempt
// counter increments across Base invocations, not within them.
type RetryUntilDeadlineExpired struct {
	Base   Strategy
	Delays delay.Provider
}

func NewRetryUntilDeadlineExpired(base Strategy, delays delay.Provider) RetryUntilDeadlineExpired {
	return RetryUntilDeadlineExpired{Base: base, Delays: delays}
}

func (s RetryUntilDeadlineExpired) Request(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
	attempt := 0
	for {
		resp, err := s.Base.Request(ctx, send, endpoint, req, d, p)
		if err != nil {
			return ResponseWithVerdict{}, err
		}
		if resp.Verdict == classify.Accept || d.Expired() {
			return resp, nil
		}
		_ = resp.Close()

		attempt++
		wait := s.Delays(attempt)
		if rem := d.Remaining(); wait > rem {
			wait = rem
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ResponseWithVerdict{}, ctx.Err()
		}
		timer.Stop()
	}
}
