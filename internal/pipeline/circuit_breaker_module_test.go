package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/resiliate/resiliate/internal/breaker"
	"github.com/resiliate/resiliate/internal/classify"
	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

func TestCircuitBreakerModuleOpensAfterThreshold(t *testing.T) {
	b := breaker.New(breaker.Config{
		BlockDuration:     time.Second,
		SamplingDuration:  10 * time.Second,
		WindowsCount:      10,
		MinimumThroughput: 2,
		FailureThreshold:  0.5,
	}, nil)

	m := CircuitBreakerModule{Breaker: b, Classifier: classify.NewDefault()}

	failing := NextFunc(func(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
		return rresponse.NewEmptyResponse(500, nil), nil
	})

	req := rrequest.New("GET", "http://example.test")
	d := deadline.FromTimeout(time.Second)

	for i := 0; i < 2; i++ {
		resp, err := m.Execute(context.Background(), failing, "example.test", req, d, priority.Normal)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status() != 500 {
			t.Fatalf("expected passthrough 500, got %d", resp.Status())
		}
	}

	resp, err := m.Execute(context.Background(), failing, "example.test", req, d, priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status() != rresponse.StatusCircuitBreakerOut {
		t.Fatalf("expected breaker fallback status, got %d", resp.Status())
	}
	if resp.Headers().Get(rresponse.HeaderDoNotRetry) == "" {
		t.Fatalf("expected fallback to carry X-Do-Not-Retry")
	}
}
