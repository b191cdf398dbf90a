package strategy

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/resiliate/resiliate/internal/classify"
	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/delay"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

func scriptedSend(t *testing.T, verdicts ...classify.Verdict) (SendFunc, *int32) {
	t.Helper()
	var calls int32
	return func(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
		i := atomic.AddInt32(&calls, 1) - 1
		if int(i) >= len(verdicts) {
			t.Fatalf("unexpected extra send call %d", i)
		}
		status := 200
		if verdicts[i] == classify.Reject {
			status = 500
		}
		return ResponseWithVerdict{Response: rresponse.NewEmptyResponse(status, nil), Verdict: verdicts[i]}, nil
	}, &calls
}

func TestSingleAttemptReturnsFirstResponse(t *testing.T) {
	send, calls := scriptedSend(t, classify.Reject)
	s := SingleAttempt{}
	resp, err := s.Request(context.Background(), send, "e", rrequest.New("GET", "e"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Verdict != classify.Reject {
		t.Fatalf("expected reject verdict passed through")
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Fatalf("expected exactly one send call, got %d", *calls)
	}
}

func TestSequentialStopsOnFirstAccept(t *testing.T) {
	send, calls := scriptedSend(t, classify.Reject, classify.Accept, classify.Reject)
	s, err := NewSequential(3, delay.Constant(0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := s.Request(context.Background(), send, "e", rrequest.New("GET", "e"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Verdict != classify.Accept {
		t.Fatalf("expected accept verdict")
	}
	if atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected exactly two send calls, got %d", *calls)
	}
}

func TestSequentialExhaustsAttemptsOnAllReject(t *testing.T) {
	send, calls := scriptedSend(t, classify.Reject, classify.Reject, classify.Reject)
	s, err := NewSequential(3, delay.Constant(0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := s.Request(context.Background(), send, "e", rrequest.New("GET", "e"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Verdict != classify.Reject {
		t.Fatalf("expected last reject verdict")
	}
	if atomic.LoadInt32(calls) != 3 {
		t.Fatalf("expected all three attempts to run, got %d", *calls)
	}
}

func TestSequentialRejectsInvalidAttemptsCount(t *testing.T) {
	if _, err := NewSequential(0, delay.Constant(0), nil); err == nil {
		t.Fatalf("expected error constructing with zero attempts")
	}
}

func TestParallelReturnsFirstAccept(t *testing.T) {
	send := func(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
		return ResponseWithVerdict{Response: rresponse.NewEmptyResponse(200, nil), Verdict: classify.Accept}, nil
	}
	s, err := NewParallel(3, delay.Constant(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := s.Request(context.Background(), send, "e", rrequest.New("GET", "e"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Verdict != classify.Accept {
		t.Fatalf("expected accept verdict")
	}
}

func TestParallelFallsBackToFirstRejectWhenNoneAccept(t *testing.T) {
	send := func(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
		return ResponseWithVerdict{Response: rresponse.NewEmptyResponse(500, nil), Verdict: classify.Reject}, nil
	}
	s, err := NewParallel(3, delay.Constant(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := s.Request(context.Background(), send, "e", rrequest.New("GET", "e"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Verdict != classify.Reject {
		t.Fatalf("expected reject verdict")
	}
}

func TestRetryUntilDeadlineExpiredStopsOnAccept(t *testing.T) {
	send, calls := scriptedSend(t, classify.Reject, classify.Accept)
	base := SingleAttempt{}
	s := NewRetryUntilDeadlineExpired(base, delay.Constant(0))

	resp, err := s.Request(context.Background(), send, "e", rrequest.New("GET", "e"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Verdict != classify.Accept {
		t.Fatalf("expected accept verdict")
	}
	if atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected two attempts, got %d", *calls)
	}
}

func TestRetryUntilDeadlineExpiredStopsWhenExpired(t *testing.T) {
	send := func(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
		return ResponseWithVerdict{Response: rresponse.NewEmptyResponse(500, nil), Verdict: classify.Reject}, nil
	}
	base := SingleAttempt{}
	s := NewRetryUntilDeadlineExpired(base, delay.Constant(0))

	resp, err := s.Request(context.Background(), send, "e", rrequest.New("GET", "e"), deadline.FromTimeout(-time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Verdict != classify.Reject {
		t.Fatalf("expected reject verdict once deadline expired")
	}
}

func TestMethodBasedDispatchesByMethod(t *testing.T) {
	getSend, getCalls := scriptedSend(t, classify.Accept)
	postSend, postCalls := scriptedSend(t, classify.Accept)

	s := NewMethodBased(map[string]Strategy{
		"GET":  Func(func(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
			return send(ctx, endpoint, req, d, p)
		}),
		"POST": Func(func(ctx context.Context, send SendFunc, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (ResponseWithVerdict, error) {
			return send(ctx, endpoint, req, d, p)
		}),
	})

	_, err := s.Request(context.Background(), getSend, "e", rrequest.New("GET", "e"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *getCalls != 1 {
		t.Fatalf("expected GET strategy to be invoked")
	}

	_, err = s.Request(context.Background(), postSend, "e", rrequest.New("POST", "e"), deadline.FromTimeout(time.Second), priority.Normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *postCalls != 1 {
		t.Fatalf("expected POST strategy to be invoked")
	}
}

func TestMethodBasedRejectsUnmappedMethod(t *testing.T) {
	s := NewMethodBased(map[string]Strategy{})
	_, err := s.Request(context.Background(), nil, "e", rrequest.New("DELETE", "e"), deadline.FromTimeout(time.Second), priority.Normal)
	if err == nil {
		t.Fatalf("expected error for unmapped method")
	}
}

func TestMaxConcurrencyReleasesPermitAfterCompletion(t *testing.T) {
	send, _ := scriptedSend(t, classify.Accept, classify.Accept)
	s := NewMaxConcurrency(SingleAttempt{}, 1)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := s.Request(ctx, send, "e", rrequest.New("GET", "e"), deadline.FromTimeout(time.Second), priority.Normal); err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
	}
}

func TestMaxConcurrencyPropagatesCancellationWhileWaiting(t *testing.T) {
	s := NewMaxConcurrency(SingleAttempt{}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Request(ctx, nil, "e", rrequest.New("GET", "e"), deadline.FromTimeout(time.Second), priority.Normal)
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}
