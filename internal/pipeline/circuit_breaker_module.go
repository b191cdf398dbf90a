package pipeline

import (
	"context"
	"net/http"

	"github.com/resiliate/resiliate/internal/breaker"
	"github.com/resiliate/resiliate/internal/classify"
	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

// CircuitBreakerModule gates dispatch through a per-endpoint Breaker,
// short-circuiting with a synthetic fallback response while the scope
// is open, and feeding the classifier's Accept/Reject verdict back as
// the breaker's success/failure signal.
type CircuitBreakerModule struct {
	Breaker    *breaker.Breaker
	Classifier classify.Classifier
	// StatusCode is the fallback response's status while the scope is
	// tripped. Defaults to rresponse.StatusCircuitBreakerOut.
	StatusCode int
}

func (m CircuitBreakerModule) Execute(ctx context.Context, next NextFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
	admitted, token := m.Breaker.Allow(endpoint)
	if !admitted {
		return rresponse.NewEmptyResponse(m.fallbackStatus(), m.fallbackHeaders()), nil
	}

	resp, err := next(ctx, endpoint, req, d, p)
	if err != nil {
		m.Breaker.OnFailure(endpoint, token)
		return nil, err
	}

	if ctx.Err() != nil {
		m.Breaker.OnFailure(endpoint, token)
		return resp, nil
	}

	if m.Classifier.Classify(resp) == classify.Accept {
		m.Breaker.OnSuccess(endpoint, token)
	} else {
		m.Breaker.OnFailure(endpoint, token)
	}
	return resp, nil
}

func (m CircuitBreakerModule) fallbackStatus() int {
	if m.StatusCode != 0 {
		return m.StatusCode
	}
	return rresponse.StatusCircuitBreakerOut
}

func (m CircuitBreakerModule) fallbackHeaders() http.Header {
	h := http.Header{}
	h.Set(rresponse.HeaderDoNotRetry, "1")
	h.Set(rresponse.HeaderCircuitBreaker, "1")
	return h
}
