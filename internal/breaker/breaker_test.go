package breaker

import (
	"testing"
	"time"
)

func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	clock := new(time.Time)
	*clock = time.Unix(0, 0)
	b := New(cfg, nil)
	b.now = func() time.Time { return *clock }
	return b, clock
}

func TestBreakerStaysClosedBelowMinimumThroughput(t *testing.T) {
	b, _ := newTestBreaker(Config{
		BlockDuration:     time.Second,
		SamplingDuration:  10 * time.Second,
		WindowsCount:      10,
		MinimumThroughput: 5,
		FailureThreshold:  0.5,
	})

	for i := 0; i < 3; i++ {
		admitted, token := b.Allow("scope")
		if !admitted {
			t.Fatalf("attempt %d: expected admission while closed", i)
		}
		b.OnFailure("scope", token)
	}

	if b.State("scope") != Closed {
		t.Fatalf("expected scope to remain closed below minimum throughput, got %s", b.State("scope"))
	}
}

func TestBreakerTripsOpenAboveFailureThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{
		BlockDuration:     time.Second,
		SamplingDuration:  10 * time.Second,
		WindowsCount:      10,
		MinimumThroughput: 4,
		FailureThreshold:  0.5,
	})

	for i := 0; i < 4; i++ {
		_, token := b.Allow("scope")
		b.OnFailure("scope", token)
	}

	if b.State("scope") != Open {
		t.Fatalf("expected scope to trip open, got %s", b.State("scope"))
	}
	if admitted, _ := b.Allow("scope"); admitted {
		t.Fatalf("expected admission to be denied immediately after tripping open")
	}
}

func TestBreakerHalfOpenProbeClosesOnSuccess(t *testing.T) {
	b, clock := newTestBreaker(Config{
		BlockDuration:     time.Second,
		SamplingDuration:  10 * time.Second,
		WindowsCount:      10,
		MinimumThroughput: 1,
		FailureThreshold:  0.5,
	})

	_, token := b.Allow("scope")
	b.OnFailure("scope", token)
	if b.State("scope") != Open {
		t.Fatalf("expected scope to trip open")
	}

	*clock = clock.Add(2 * time.Second)
	admitted, probeToken := b.Allow("scope")
	if !admitted {
		t.Fatalf("expected half-open probe to be admitted after block duration")
	}
	if b.State("scope") != HalfOpen {
		t.Fatalf("expected scope to be half-open, got %s", b.State("scope"))
	}
	if probeToken == (ProbeToken{}) {
		t.Fatalf("expected a non-zero probe token for a half-open admission")
	}

	b.OnSuccess("scope", probeToken)
	if b.State("scope") != Closed {
		t.Fatalf("expected successful probe to close scope, got %s", b.State("scope"))
	}
}

func TestBreakerHalfOpenProbeReopensOnFailure(t *testing.T) {
	b, clock := newTestBreaker(Config{
		BlockDuration:     time.Second,
		SamplingDuration:  10 * time.Second,
		WindowsCount:      10,
		MinimumThroughput: 1,
		FailureThreshold:  0.5,
	})

	_, token := b.Allow("scope")
	b.OnFailure("scope", token)
	*clock = clock.Add(2 * time.Second)
	_, probeToken := b.Allow("scope")

	b.OnFailure("scope", probeToken)
	if b.State("scope") != Open {
		t.Fatalf("expected failed probe to reopen scope, got %s", b.State("scope"))
	}
	if admitted, _ := b.Allow("scope"); admitted {
		t.Fatalf("expected admission to be denied right after a failed probe re-opens the scope")
	}
}

func TestBreakerStaleProbeCannotAffectANewerProbeCycle(t *testing.T) {
	b, clock := newTestBreaker(Config{
		BlockDuration:     time.Second,
		SamplingDuration:  10 * time.Second,
		WindowsCount:      10,
		MinimumThroughput: 1,
		FailureThreshold:  0.5,
	})

	_, token := b.Allow("scope")
	b.OnFailure("scope", token)

	*clock = clock.Add(2 * time.Second)
	_, staleProbe := b.Allow("scope")
	b.OnFailure("scope", staleProbe) // reopens, advances blockedTil

	*clock = clock.Add(2 * time.Second)
	_, freshProbe := b.Allow("scope")
	if freshProbe == staleProbe {
		t.Fatalf("expected a new probe token for the new probe cycle")
	}

	// The stale probe's outcome finally arrives after the fresh probe
	// has already been admitted; it must not close the fresh cycle.
	b.OnSuccess("scope", staleProbe)
	if b.State("scope") != HalfOpen {
		t.Fatalf("expected stale probe outcome to be ignored, got %s", b.State("scope"))
	}

	b.OnSuccess("scope", freshProbe)
	if b.State("scope") != Closed {
		t.Fatalf("expected the fresh probe's own success to close the scope, got %s", b.State("scope"))
	}
}

func TestBreakerBlocksUntilBlockDurationElapses(t *testing.T) {
	b, clock := newTestBreaker(Config{
		BlockDuration:     5 * time.Second,
		SamplingDuration:  10 * time.Second,
		WindowsCount:      10,
		MinimumThroughput: 1,
		FailureThreshold:  0.5,
	})

	_, token := b.Allow("scope")
	b.OnFailure("scope", token)

	*clock = clock.Add(time.Second)
	if admitted, _ := b.Allow("scope"); admitted {
		t.Fatalf("expected admission to stay denied before block duration elapses")
	}

	*clock = clock.Add(5 * time.Second)
	if admitted, _ := b.Allow("scope"); !admitted {
		t.Fatalf("expected admission once block duration has elapsed")
	}
}
