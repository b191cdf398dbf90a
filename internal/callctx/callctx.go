// Package callctx carries the ambient deadline/priority snapshot across
// nested logical calls. Go has no implicit task-local storage, so per the
// design note in spec section 9 the ambient state travels explicitly as a
// context.Context value; installing a new snapshot (With) and letting the
// caller's own context go out of scope gives the same push/pop-with-
// guaranteed-restore semantics the source gets from contextvars, without
// any global mutable state, and for free isolates concurrent goroutines
// that each hold their own context.Context chain.
package callctx

import (
	"context"

	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
)

type ambientKey struct{}

// Ambient is the snapshot of deadline/priority observed by a nested call.
// A nil Deadline or a nil Priority means "not set".
type Ambient struct {
	Deadline *deadline.Deadline
	Priority *priority.Priority
}

// Get reads the ambient snapshot installed on ctx, if any.
func Get(ctx context.Context) Ambient {
	if a, ok := ctx.Value(ambientKey{}).(Ambient); ok {
		return a
	}
	return Ambient{}
}

// With installs a new ambient snapshot for the returned context, merging
// over whatever was previously installed. A nil argument leaves the
// corresponding field unchanged.
func With(ctx context.Context, d *deadline.Deadline, p *priority.Priority) context.Context {
	current := Get(ctx)
	next := Ambient{Deadline: current.Deadline, Priority: current.Priority}
	if d != nil {
		next.Deadline = d
	}
	if p != nil {
		next.Priority = p
	}
	return context.WithValue(ctx, ambientKey{}, next)
}
