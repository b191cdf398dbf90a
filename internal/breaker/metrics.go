// Package breaker implements a per-scope three-state circuit breaker
// (Closed/Open/HalfOpen) gated by a rolling failure-rate window.
package breaker

import (
	"container/list"
	"time"
)

// Snapshot is a point-in-time rollup of a rolling metrics window.
type Snapshot struct {
	StartedAt time.Time
	Successes int64
	Failures  int64
}

// Throughput is the total number of outcomes recorded in the snapshot.
func (s Snapshot) Throughput() int64 { return s.Successes + s.Failures }

// FailureRatio is the fraction of outcomes that were failures. Returns 0
// when the snapshot has no recorded outcomes.
func (s Snapshot) FailureRatio() float64 {
	throughput := s.Throughput()
	if throughput == 0 {
		return 0
	}
	return float64(s.Failures) / float64(throughput)
}

type window struct {
	startedAt time.Time
	successes int64
	failures  int64
}

// rollingMetrics accumulates successes/failures into fixed-size windows
// spanning a sampling duration, discarding windows older than that
// duration. collect() sums every live window, so the reported rate
// reflects a moving span rather than resetting sharply every
// sampling period.
type rollingMetrics struct {
	samplingDuration time.Duration
	windowDuration   time.Duration
	windows          *list.List // of *window, oldest at Front
	now              func() time.Time
}

func newRollingMetrics(samplingDuration time.Duration, windowsCount int, now func() time.Time) *rollingMetrics {
	return &rollingMetrics{
		samplingDuration: samplingDuration,
		windowDuration:   samplingDuration / time.Duration(windowsCount),
		windows:          list.New(),
		now:              now,
	}
}

func (m *rollingMetrics) incrementSuccesses() {
	m.refresh().successes++
}

func (m *rollingMetrics) incrementFailures() {
	m.refresh().failures++
}

func (m *rollingMetrics) reset() {
	m.windows.Init()
}

func (m *rollingMetrics) collect() Snapshot {
	m.refresh()

	var successes, failures int64
	var oldest time.Time
	for e := m.windows.Front(); e != nil; e = e.Next() {
		w := e.Value.(*window)
		successes += w.successes
		failures += w.failures
		if oldest.IsZero() {
			oldest = w.startedAt
		}
	}
	return Snapshot{StartedAt: oldest, Successes: successes, Failures: failures}
}

// refresh appends a fresh window when the current one has aged past
// windowDuration, then evicts windows older than samplingDuration.
// Returns the current (possibly newly-created) window.
func (m *rollingMetrics) refresh() *window {
	now := m.now()

	var current *window
	if back := m.windows.Back(); back != nil {
		current = back.Value.(*window)
	}
	if current == nil || now.Sub(current.startedAt) >= m.windowDuration {
		current = &window{startedAt: now}
		m.windows.PushBack(current)
	}

	for front := m.windows.Front(); front != nil; front = m.windows.Front() {
		w := front.Value.(*window)
		if now.Sub(w.startedAt) < m.samplingDuration {
			break
		}
		m.windows.Remove(front)
	}

	return current
}
