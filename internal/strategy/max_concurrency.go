package strategy

import (
	"context"

	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/pkg/rrequest"
)

// MaxConcurrency gates entry into Inner behind a buffered-channel
// semaphore of the given size, releasing the permit on every exit path
// including cancellation while waiting for one.
type MaxConcurrency struct {
	Inner Strategy
	sem   chan struct{}
}

// NewMaxConcurrency builds a MaxConcurrency strategy admitting at most
// limit concurrent in-flight calls to inner.
func NewMaxConcurrency(inner Strategy, limit int) MaxConcurrency {
	return MaxConcurrency{Inner: inner, sem: make(chan struct{}, limit)}
}

func (s MaxConcurrency) Request(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ResponseWithVerdict{}, ctx.Err()
	}
	defer func() { <-s.sem }()

	return s.Inner.Request(ctx, send, endpoint, req, d, p)
}
