package resiliate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/resiliate/resiliate/internal/breaker"
	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/delay"
	"github.com/resiliate/resiliate/internal/strategy"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

// scriptedTransport replays a fixed sequence of responses, one per call,
// each after an optional artificial delay. It stands in for the real
// network transport collaborator, which is out of scope for this core.
type scriptedTransport struct {
	steps []scriptedStep
	calls int32
}

type scriptedStep struct {
	after  time.Duration
	status int
}

func (t *scriptedTransport) Send(ctx context.Context, endpoint string, req rrequest.Request, timeout time.Duration) (rresponse.Response, error) {
	i := int(atomic.AddInt32(&t.calls, 1) - 1)
	if i >= len(t.steps) {
		return rresponse.NewEmptyResponse(500, nil), nil
	}
	step := t.steps[i]
	if step.after > 0 {
		timer := time.NewTimer(step.after)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return rresponse.NewEmptyResponse(rresponse.StatusClientCancelled, nil), nil
		}
	}
	return rresponse.NewEmptyResponse(step.status, nil), nil
}

func (t *scriptedTransport) callCount() int { return int(atomic.LoadInt32(&t.calls)) }

func TestSequentialSucceedsOnRetry(t *testing.T) {
	tr := &scriptedTransport{steps: []scriptedStep{{status: rresponse.StatusNetworkError}, {status: 200}}}
	seq, err := strategy.NewSequential(3, delay.Constant(time.Millisecond), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := New("http://upstream.test", WithTransport(tr), WithSafeMethodStrategy(seq))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := deadline.FromTimeout(time.Second)
	resp, err := c.Request(context.Background(), rrequest.New("GET", "http://upstream.test"), WithRequestDeadline(d))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Close()

	if resp.Status() != 200 {
		t.Fatalf("expected final status 200, got %d", resp.Status())
	}
	if d.Expired() {
		t.Fatalf("expected deadline not to be expired")
	}
	if tr.callCount() != 2 {
		t.Fatalf("expected exactly two transport calls, got %d", tr.callCount())
	}
}

func TestParallelSlowerFirstWinsBySuccess(t *testing.T) {
	tr := &scriptedTransport{steps: []scriptedStep{
		{after: 200 * time.Millisecond, status: 200},
		{status: 200},
	}}
	par, err := strategy.NewParallel(2, delay.Constant(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := New("http://upstream.test", WithTransport(tr), WithSafeMethodStrategy(par))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := deadline.FromTimeout(time.Second)
	resp, err := c.Request(context.Background(), rrequest.New("GET", "http://upstream.test"), WithRequestDeadline(d))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Close()

	if resp.Status() != 200 {
		t.Fatalf("expected yielded status 200, got %d", resp.Status())
	}
	if d.Expired() {
		t.Fatalf("expected deadline not to be expired")
	}
}

func TestLowTimeoutGuardShortCircuits(t *testing.T) {
	tr := &scriptedTransport{steps: []scriptedStep{{status: 200}}}
	c, err := New("http://upstream.test", WithTransport(tr), WithLowTimeoutThreshold(20*time.Millisecond), WithUnsafeMethodStrategy(strategy.SingleAttempt{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := deadline.FromTimeout(10 * time.Millisecond)
	resp, err := c.Request(context.Background(), rrequest.New("POST", "http://upstream.test"), WithRequestDeadline(d))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Close()

	if resp.Status() != rresponse.StatusLowTimeout {
		t.Fatalf("expected synthetic low-timeout status, got %d", resp.Status())
	}
	if tr.callCount() != 0 {
		t.Fatalf("expected zero transport calls, got %d", tr.callCount())
	}
}

func TestCircuitOpensThenProbes(t *testing.T) {
	tr := &scriptedTransport{steps: []scriptedStep{
		{status: 500}, {status: 500}, {after: 10 * time.Millisecond, status: 200},
	}}
	b := breaker.New(breaker.Config{
		BlockDuration:     30 * time.Millisecond,
		SamplingDuration:  time.Second,
		WindowsCount:      10,
		MinimumThroughput: 2,
		FailureThreshold:  0.5,
	}, nil)

	c, err := New("http://upstream.test", WithTransport(tr), WithCircuitBreaker(b), WithUnsafeMethodStrategy(strategy.SingleAttempt{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		resp, err := c.Request(context.Background(), rrequest.New("POST", "http://upstream.test"), WithRequestDeadline(deadline.FromTimeout(time.Second)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Close()
	}
	if b.State("http://upstream.test") != breaker.Open {
		t.Fatalf("expected breaker to be open after repeated failures, got %s", b.State("http://upstream.test"))
	}

	resp, err := c.Request(context.Background(), rrequest.New("POST", "http://upstream.test"), WithRequestDeadline(deadline.FromTimeout(time.Second)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status() != rresponse.StatusCircuitBreakerOut {
		t.Fatalf("expected fallback status while open, got %d", resp.Status())
	}
	resp.Close()

	time.Sleep(40 * time.Millisecond)

	resp, err = c.Request(context.Background(), rrequest.New("POST", "http://upstream.test"), WithRequestDeadline(deadline.FromTimeout(time.Second)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status() != 200 {
		t.Fatalf("expected half-open probe to succeed with 200, got %d", resp.Status())
	}
	resp.Close()
	if b.State("http://upstream.test") != breaker.Closed {
		t.Fatalf("expected breaker to close after successful probe, got %s", b.State("http://upstream.test"))
	}
}

func TestRetryUntilDeadlineExpiredEventuallyExpires(t *testing.T) {
	tr := &scriptedTransport{}
	base := strategy.SingleAttempt{}
	retry := strategy.NewRetryUntilDeadlineExpired(base, delay.Constant(5*time.Millisecond))

	c, err := New("http://upstream.test", WithTransport(tr), WithUnsafeMethodStrategy(retry), WithLowTimeoutThreshold(2*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := deadline.FromTimeout(60 * time.Millisecond)
	resp, err := c.Request(context.Background(), rrequest.New("POST", "http://upstream.test"), WithRequestDeadline(d))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Close()

	if !d.Expired() {
		t.Fatalf("expected deadline to be expired")
	}
	if resp.Status() != 500 && resp.Status() != rresponse.StatusLowTimeout {
		t.Fatalf("expected final status to be the last rejected outcome, got %d", resp.Status())
	}
}

func TestSplitDeadlineProviderRedistributesAcrossAttempts(t *testing.T) {
	attempts := 3
	provider := deadline.Split(nil)

	d := deadline.FromTimeout(900 * time.Millisecond)
	first := provider(d, 0, attempts)
	approxThird := 300 * time.Millisecond
	if diff := first.Remaining() - approxThird; diff < -50*time.Millisecond || diff > 50*time.Millisecond {
		t.Fatalf("expected first sub-deadline near %v, got %v", approxThird, first.Remaining())
	}

	second := provider(d, 1, attempts)
	approxHalf := 450 * time.Millisecond
	if diff := second.Remaining() - approxHalf; diff < -50*time.Millisecond || diff > 50*time.Millisecond {
		t.Fatalf("expected second sub-deadline near %v, got %v", approxHalf, second.Remaining())
	}

	last := provider(d, 2, attempts)
	approxAll := 900 * time.Millisecond
	if diff := last.Remaining() - approxAll; diff < -50*time.Millisecond || diff > 50*time.Millisecond {
		t.Fatalf("expected last sub-deadline near %v, got %v", approxAll, last.Remaining())
	}
}
