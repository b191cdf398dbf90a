package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/resiliate/resiliate/internal/classify"
	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/delay"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/internal/rlerr"
	"github.com/resiliate/resiliate/pkg/rrequest"
)

// Sequential issues up to AttemptsCount attempts, one after another,
// stopping early on the first Accept. Each attempt's own deadline is
// computed by DeadlineProvider (deadline.PassThrough() by default);
// the loop as a whole still respects the outer deadline passed to
// Request.
type Sequential struct {
	AttemptsCount    int
	Delays           delay.Provider
	DeadlineProvider deadline.Provider
}

// NewSequential builds a Sequential strategy. A nil deadlineProvider
// defaults to deadline.PassThrough().
func NewSequential(attemptsCount int, delays delay.Provider, deadlineProvider deadline.Provider) (Sequential, error) {
	if attemptsCount < 1 {
		return Sequential{}, fmt.Errorf("strategy: sequential: %w", rlerr.ErrInvalidAttemptsCount)
	}
	if deadlineProvider == nil {
		deadlineProvider = deadline.PassThrough()
	}
	return Sequential{AttemptsCount: attemptsCount, Delays: delays, DeadlineProvider: deadlineProvider}, nil
}

func (s Sequential) Request(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
	var responses []ResponseWithVerdict

	for attempt := 0; attempt < s.AttemptsCount; attempt++ {
		attemptDeadline := s.DeadlineProvider(d, attempt, s.AttemptsCount)

		resp, err := send(ctx, endpoint, req, attemptDeadline, p)
		if err != nil {
			closeAll(responses)
			return ResponseWithVerdict{}, err
		}
		responses = append(responses, resp)

		if resp.Verdict == classify.Accept {
			break
		}
		if attempt+1 == s.AttemptsCount {
			break
		}

		retryDelay := s.Delays(attempt + 1)
		if d.Remaining() < retryDelay {
			break
		}

		timer := time.NewTimer(retryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			closeAll(responses)
			return ResponseWithVerdict{}, ctx.Err()
		}
		timer.Stop()
	}

	final := responses[len(responses)-1]
	closeAll(responses[:len(responses)-1])
	return final, nil
}
