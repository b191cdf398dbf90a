package strategy

import (
	"context"
	"fmt"

	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/internal/rlerr"
	"github.com/resiliate/resiliate/pkg/rrequest"
)

// MethodBased dispatches to a per-HTTP-method inner strategy. An
// unmapped method is a programming error, not a runtime Reject.
type MethodBased struct {
	ByMethod map[string]Strategy
}

func NewMethodBased(byMethod map[string]Strategy) MethodBased {
	return MethodBased{ByMethod: byMethod}
}

func (s MethodBased) Request(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
	inner, ok := s.ByMethod[req.Method]
	if !ok {
		return ResponseWithVerdict{}, fmt.Errorf("strategy: method %q: %w", req.Method, rlerr.ErrUnmappedMethod)
	}
	return inner.Request(ctx, send, endpoint, req, d, p)
}
