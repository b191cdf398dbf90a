package pipeline

import (
	"context"
	"strconv"

	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/internal/transport"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

// RequestEnricher mutates a request before it is sent, optionally aware
// of whether system headers were just emitted onto it.
type RequestEnricher func(req rrequest.Request, emittedSystemHeaders bool) (rrequest.Request, error)

// TransportModule is the terminal pipeline stage: it never calls next,
// dispatching the attempt via transport instead.
type TransportModule struct {
	Transport         transport.Transport
	EmitSystemHeaders bool
	RequestEnricher   RequestEnricher
}

func (m TransportModule) Execute(ctx context.Context, _ NextFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
	if m.EmitSystemHeaders {
		remainingSeconds := strconv.FormatFloat(d.Remaining().Seconds(), 'f', -1, 64)
		req = req.UpdateHeaders(map[string][]string{
			rresponse.HeaderRequestDeadline: {d.String()},
			rresponse.HeaderRequestPriority: {p.String()},
			rresponse.HeaderRequestTimeout:  {remainingSeconds},
		})
	}

	if m.RequestEnricher != nil {
		enriched, err := m.RequestEnricher(req, m.EmitSystemHeaders)
		if err != nil {
			return nil, err
		}
		req = enriched
	}

	return m.Transport.Send(ctx, endpoint, req, d.Remaining())
}
