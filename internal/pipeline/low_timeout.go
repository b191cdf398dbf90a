package pipeline

import (
	"context"
	"time"

	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

// LowTimeoutModule short-circuits attempts whose remaining deadline
// budget is too small to be worth sending over the wire, returning a
// synthetic 408 instead of dispatching a doomed attempt.
type LowTimeoutModule struct {
	Threshold time.Duration
}

func (m LowTimeoutModule) Execute(ctx context.Context, next NextFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
	if d.Expired() || d.Remaining() < m.Threshold {
		return rresponse.NewEmptyResponse(rresponse.StatusLowTimeout, nil), nil
	}
	return next(ctx, endpoint, req, d, p)
}
