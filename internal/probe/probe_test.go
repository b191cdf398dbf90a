package probe

import (
	"context"
	"testing"
	"time"

	"github.com/resiliate/resiliate/internal/transport"
	"github.com/resiliate/resiliate/pkg/resiliate"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

type fixedTransport struct{ status int }

func (t fixedTransport) Send(ctx context.Context, endpoint string, req rrequest.Request, timeout time.Duration) (rresponse.Response, error) {
	return rresponse.NewEmptyResponse(t.status, nil), nil
}

var _ transport.Transport = fixedTransport{}

func TestEngineRunCollectsResultsUntilDeadline(t *testing.T) {
	client, err := resiliate.New("http://upstream.test", resiliate.WithTransport(fixedTransport{status: 200}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	engine := &Engine{Client: client}

	cfg := Config{
		Method:      "GET",
		URLTemplate: "http://upstream.test/health",
		Rate:        50,
		Concurrency: 2,
		Duration:    50 * time.Millisecond,
	}

	results := make(chan Result, 1000)
	engine.Run(context.Background(), cfg, results)

	monitor := NewMonitor()
	count := 0
	for r := range results {
		monitor.Add(r)
		count++
	}
	if count == 0 {
		t.Fatalf("expected at least one result")
	}

	snap := monitor.Snapshot()
	if snap.TotalRequests != int64(count) {
		t.Fatalf("expected snapshot total %d, got %d", count, snap.TotalRequests)
	}
	if snap.Accepted == 0 {
		t.Fatalf("expected some accepted results")
	}
}

func TestEngineExpandsRegexGenPlaceholders(t *testing.T) {
	client, err := resiliate.New("http://upstream.test", resiliate.WithTransport(fixedTransport{status: 200}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	engine := &Engine{Client: client}

	cfg := Config{
		Method:      "GET",
		URLTemplate: "http://upstream.test/users/{regex_gen:[0-9]{4}}",
		Rate:        100,
		Concurrency: 1,
		Duration:    20 * time.Millisecond,
	}

	results := make(chan Result, 100)
	engine.Run(context.Background(), cfg, results)

	count := 0
	for r := range results {
		if r.Error != nil {
			t.Fatalf("unexpected attempt error: %v", r.Error)
		}
		count++
	}
	if count == 0 {
		t.Fatalf("expected at least one result")
	}
}
