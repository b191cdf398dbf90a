// Package strategy implements the request strategies that orchestrate
// one or more attempts under a shared deadline: single, sequential,
// parallel-race, retry-until-deadline, method-dispatch, and
// max-concurrency.
package strategy

import (
	"context"

	"github.com/resiliate/resiliate/internal/classify"
	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

// ResponseWithVerdict pairs a response with its classifier verdict. It
// owns response: Close must be called exactly once, by whoever ends up
// holding the winning value.
type ResponseWithVerdict struct {
	Response rresponse.Response
	Verdict  classify.Verdict
}

// Close closes the underlying response, if any. Safe to call on a zero
// value.
func (r ResponseWithVerdict) Close() error {
	if r.Response == nil {
		return nil
	}
	return r.Response.Close()
}

func closeAll(rs []ResponseWithVerdict) {
	for _, r := range rs {
		_ = r.Close()
	}
}

// SendFunc dispatches one already-classified attempt.
type SendFunc func(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error)

// Strategy orchestrates one or more attempts via send and returns the
// single response the caller should act on and eventually Close.
type Strategy interface {
	Request(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error)
}

// Func adapts a plain function to a Strategy.
type Func func(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error)

func (f Func) Request(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
	return f(ctx, send, endpoint, req, d, p)
}
