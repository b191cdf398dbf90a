// Package pipeline implements the composable request pipeline: an
// ordered list of Modules, each able to short-circuit, enrich, or wrap
// the call to the next module, terminating in a Transport call.
package pipeline

import (
	"context"

	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/internal/rlerr"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

// NextFunc dispatches a request to the next stage of the pipeline.
type NextFunc func(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error)

// Module is one stage of the request pipeline. Execute may call next
// zero or more times (zero to short-circuit, more than one only makes
// sense for modules that themselves retry).
type Module interface {
	Execute(ctx context.Context, next NextFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error)
}

// ModuleFunc adapts a plain function to a Module.
type ModuleFunc func(ctx context.Context, next NextFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error)

func (f ModuleFunc) Execute(ctx context.Context, next NextFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
	return f(ctx, next, endpoint, req, d, p)
}

// Build right-folds modules into a single NextFunc: the first module in
// the slice runs first, and its next parameter invokes the second, and
// so on. A pipeline built from an empty slice always fails with
// rlerr.ErrPipelineUnsupported.
func Build(modules []Module) NextFunc {
	var next NextFunc = func(context.Context, string, rrequest.Request, deadline.Deadline, priority.Priority) (rresponse.Response, error) {
		return nil, rlerr.ErrPipelineUnsupported
	}
	for i := len(modules) - 1; i >= 0; i-- {
		m := modules[i]
		captured := next
		next = func(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
			return m.Execute(ctx, captured, endpoint, req, d, p)
		}
	}
	return next
}
