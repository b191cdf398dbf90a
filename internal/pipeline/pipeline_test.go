package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/internal/rlerr"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

func TestBuildEmptyPipelineFailsWithUnsupported(t *testing.T) {
	next := Build(nil)
	_, err := next(context.Background(), "http://example.test", rrequest.New("GET", "http://example.test"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != rlerr.ErrPipelineUnsupported {
		t.Fatalf("expected ErrPipelineUnsupported, got %v", err)
	}
}

func TestBuildOrdersModulesOutermostFirst(t *testing.T) {
	var order []string

	record := func(name string) ModuleFunc {
		return func(ctx context.Context, next NextFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
			order = append(order, name)
			return next(ctx, endpoint, req, d, p)
		}
	}

	terminal := ModuleFunc(func(ctx context.Context, next NextFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
		order = append(order, "terminal")
		return rresponse.NewEmptyResponse(200, nil), nil
	})

	next := Build([]Module{record("a"), record("b"), terminal})
	resp, err := next(context.Background(), "http://example.test", rrequest.New("GET", "http://example.test"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status() != 200 {
		t.Fatalf("expected status 200, got %d", resp.Status())
	}

	want := []string{"a", "b", "terminal"}
	if len(order) != len(want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestLowTimeoutModuleShortCircuitsBelowThreshold(t *testing.T) {
	called := false
	next := NextFunc(func(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
		called = true
		return rresponse.NewEmptyResponse(200, nil), nil
	})

	m := LowTimeoutModule{Threshold: 500 * time.Millisecond}
	resp, err := m.Execute(context.Background(), next, "http://example.test", rrequest.New("GET", "http://example.test"), deadline.FromTimeout(100*time.Millisecond), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("expected next not to be called when under threshold")
	}
	if resp.Status() != rresponse.StatusLowTimeout {
		t.Fatalf("expected synthetic low-timeout status, got %d", resp.Status())
	}
}

func TestLowTimeoutModulePassesThroughAboveThreshold(t *testing.T) {
	next := NextFunc(func(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (rresponse.Response, error) {
		return rresponse.NewEmptyResponse(200, nil), nil
	})

	m := LowTimeoutModule{Threshold: 50 * time.Millisecond}
	resp, err := m.Execute(context.Background(), next, "http://example.test", rrequest.New("GET", "http://example.test"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status() != 200 {
		t.Fatalf("expected pass-through status, got %d", resp.Status())
	}
}
