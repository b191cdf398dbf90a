package strategy

import (
	"context"

	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/pkg/rrequest"
)

// SingleAttempt issues exactly one attempt and returns it verbatim.
type SingleAttempt struct{}

func (SingleAttempt) Request(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
	return send(ctx, endpoint, req, d, p)
}
