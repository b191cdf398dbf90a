package probe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/resiliate/resiliate/internal/classify"
)

// Snapshot is a point-in-time summary of everything a Monitor has
// observed.
type Snapshot struct {
	TotalRequests int64
	Accepted      int64
	Rejected      int64
	Errored       int64
	SuccessRate   float64
	RPS           float64

	P50, P75, P90, P95, P99 time.Duration
	Min, Max                time.Duration

	StatusCodes   map[string]int64
	BreakerStates map[string]int64
}

// Monitor aggregates probe Results with atomic counters and an HDR
// histogram for latency, keyed on classifier verdicts and breaker
// state instead of raw success/failure flags.
type Monitor struct {
	total    int64
	accepted int64
	rejected int64
	errored  int64

	startTime time.Time

	mu        sync.Mutex
	histogram *hdrhistogram.Histogram

	statusCodes   sync.Map // map[int]*int64
	breakerStates sync.Map // map[string]*int64
}

// NewMonitor constructs an empty Monitor whose clock starts now.
func NewMonitor() *Monitor {
	return &Monitor{
		startTime: time.Now(),
		histogram: hdrhistogram.New(1, 30_000_000, 3),
	}
}

// Add records one probe Result.
func (m *Monitor) Add(r Result) {
	atomic.AddInt64(&m.total, 1)

	switch {
	case r.Error != nil:
		atomic.AddInt64(&m.errored, 1)
	case r.Verdict == classify.Accept:
		atomic.AddInt64(&m.accepted, 1)
	default:
		atomic.AddInt64(&m.rejected, 1)
	}

	if r.Error == nil {
		m.mu.Lock()
		_ = m.histogram.RecordValue(r.Latency.Microseconds())
		m.mu.Unlock()

		counter, _ := m.statusCodes.LoadOrStore(r.Status, new(int64))
		atomic.AddInt64(counter.(*int64), 1)
	}

	counter, _ := m.breakerStates.LoadOrStore(r.BreakerState.String(), new(int64))
	atomic.AddInt64(counter.(*int64), 1)
}

// Snapshot summarizes everything observed so far.
func (m *Monitor) Snapshot() Snapshot {
	total := atomic.LoadInt64(&m.total)
	accepted := atomic.LoadInt64(&m.accepted)
	rejected := atomic.LoadInt64(&m.rejected)
	errored := atomic.LoadInt64(&m.errored)

	elapsed := time.Since(m.startTime).Seconds()
	rps := 0.0
	if elapsed > 0 {
		rps = float64(total) / elapsed
	}
	successRate := 0.0
	if total > 0 {
		successRate = float64(accepted) / float64(total) * 100
	}

	m.mu.Lock()
	h := m.histogram
	snap := Snapshot{
		P50: time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P75: time.Duration(h.ValueAtQuantile(75)) * time.Microsecond,
		P90: time.Duration(h.ValueAtQuantile(90)) * time.Microsecond,
		P95: time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
		P99: time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
		Min: time.Duration(h.Min()) * time.Microsecond,
		Max: time.Duration(h.Max()) * time.Microsecond,
	}
	m.mu.Unlock()

	snap.TotalRequests = total
	snap.Accepted = accepted
	snap.Rejected = rejected
	snap.Errored = errored
	snap.SuccessRate = successRate
	snap.RPS = rps

	snap.StatusCodes = make(map[string]int64)
	m.statusCodes.Range(func(key, value any) bool {
		snap.StatusCodes[fmt.Sprintf("%d", key.(int))] = atomic.LoadInt64(value.(*int64))
		return true
	})

	snap.BreakerStates = make(map[string]int64)
	m.breakerStates.Range(func(key, value any) bool {
		snap.BreakerStates[key.(string)] = atomic.LoadInt64(value.(*int64))
		return true
	})

	return snap
}
