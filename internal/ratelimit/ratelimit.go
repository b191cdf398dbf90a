// Package ratelimit implements a domain-stack pipeline module gating
// dispatch through a token bucket.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/pipeline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

// Module waits for a token from Limiter before calling next, bounded by
// the attempt's own deadline: when no token arrives in time the attempt
// ends with a synthetic StatusClientCancelled response instead of
// stalling the whole call indefinitely.
type Module struct {
	Limiter *rate.Limiter
}

// New builds a Module with a limiter admitting rps requests per second
// with the given burst.
func New(rps float64, burst int) Module {
	return Module{Limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (m Module) Execute(ctx context.Context, next pipeline.NextFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
	waitCtx, cancel := context.WithTimeout(ctx, d.Remaining())
	defer cancel()

	if err := m.Limiter.Wait(waitCtx); err != nil {
		return rresponse.NewEmptyResponse(rresponse.StatusClientCancelled, nil), nil
	}
	return next(ctx, endpoint, req, d, p)
}
