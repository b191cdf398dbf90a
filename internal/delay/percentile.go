package delay

import (
	"fmt"
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

	"github.com/resiliate/resiliate/internal/rlerr"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

// histogramBounds: 1 microsecond floor, 30 second ceiling, 3
// significant figures of resolution.
const (
	histogramMin        = 1
	histogramMax        = 30 * 1000 * 1000
	histogramSigFigures = 3
)

type bucket struct {
	startedAt time.Time
	hist      *hdrhistogram.Histogram
}

// PercentileDelayProvider observes successful attempts' elapsed time,
// bucketed per (method, URL) over time, and derives a per-attempt delay
// from an observed latency percentile. Buckets overlap deliberately: every
// live bucket is updated on every observation, so the oldest surviving
// bucket always reflects roughly the full configured window, and the
// window "slides" as the oldest bucket expires and a fresher one takes
// its place.
type PercentileDelayProvider struct {
	percentile float64 // 0..100, as passed to hdrhistogram.ValueAtQuantile
	minDelay   time.Duration
	maxDelay   time.Duration
	bucketSize time.Duration
	bucketTTL  time.Duration

	mu      sync.Mutex
	buckets map[string][]*bucket

	now func() time.Time
}

// PercentileDelayConfig tunes PercentileDelayProvider construction.
type PercentileDelayConfig struct {
	Percentile      float64       // in (0, 1)
	MinDelay        time.Duration // > 0
	MaxDelay        time.Duration // >= MinDelay
	WindowSize      time.Duration // > 0
	BucketsCount    int           // > 0
}

// DefaultPercentileDelayConfig returns reasonable defaults.
func DefaultPercentileDelayConfig() PercentileDelayConfig {
	return PercentileDelayConfig{
		Percentile:   0.95,
		MinDelay:     50 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		WindowSize:   5 * time.Minute,
		BucketsCount: 2,
	}
}

// NewPercentileDelayProvider validates cfg and constructs a provider.
func NewPercentileDelayProvider(cfg PercentileDelayConfig) (*PercentileDelayProvider, error) {
	if cfg.MinDelay <= 0 || cfg.MaxDelay <= 0 {
		return nil, fmt.Errorf("delay: min/max delay must be positive: %w", rlerr.ErrInvalidDelayProvider)
	}
	if cfg.MinDelay > cfg.MaxDelay {
		return nil, fmt.Errorf("delay: min delay must be <= max delay: %w", rlerr.ErrInvalidDelayProvider)
	}
	if cfg.Percentile <= 0 || cfg.Percentile >= 1 {
		return nil, fmt.Errorf("delay: percentile must be in (0, 1): %w", rlerr.ErrInvalidDelayProvider)
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("delay: window size must be positive: %w", rlerr.ErrInvalidDelayProvider)
	}
	if cfg.BucketsCount <= 0 {
		return nil, fmt.Errorf("delay: buckets count must be positive: %w", rlerr.ErrInvalidDelayProvider)
	}

	bucketSize := cfg.WindowSize / time.Duration(cfg.BucketsCount)
	return &PercentileDelayProvider{
		percentile: cfg.Percentile * 100,
		minDelay:   cfg.MinDelay,
		maxDelay:   cfg.MaxDelay,
		bucketSize: bucketSize,
		bucketTTL:  cfg.WindowSize + bucketSize,
		buckets:    make(map[string][]*bucket),
		now:        time.Now,
	}, nil
}

// Delay returns the delay to apply before issuing the given attempt of
// request, derived from the observed latency percentile of its endpoint.
func (p *PercentileDelayProvider) Delay(req rrequest.Request, attempt int) time.Duration {
	key := p.key(req)

	p.mu.Lock()
	defer p.mu.Unlock()

	buckets := p.evict(key)
	if len(buckets) == 0 {
		return p.minDelay
	}

	oldest := buckets[0]
	perAttempt := time.Duration(oldest.hist.ValueAtQuantile(p.percentile)) * time.Microsecond
	if perAttempt < p.minDelay {
		perAttempt = p.minDelay
	}
	if perAttempt > p.maxDelay {
		perAttempt = p.maxDelay
	}
	return perAttempt * time.Duration(attempt)
}

// Observe records a successful attempt's elapsed time. Responses with an
// unmeasured elapsed (ElapsedUnknown) or a non-2xx status are ignored.
func (p *PercentileDelayProvider) Observe(req rrequest.Request, resp rresponse.Response) {
	if resp.Elapsed() < 0 {
		return
	}
	if !rresponse.IsSuccessful(resp) {
		return
	}

	key := p.key(req)
	micros := resp.Elapsed().Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	buckets := p.evict(key)
	now := p.now()
	if len(buckets) == 0 || now.Sub(buckets[len(buckets)-1].startedAt) >= p.bucketSize {
		buckets = append(buckets, &bucket{
			startedAt: now,
			hist:      hdrhistogram.New(histogramMin, histogramMax, histogramSigFigures),
		})
		p.buckets[key] = buckets
	}

	for _, b := range buckets {
		_ = b.hist.RecordValue(micros)
	}
}

// evict drops expired buckets for key and returns the surviving slice.
// Caller must hold p.mu.
func (p *PercentileDelayProvider) evict(key string) []*bucket {
	buckets := p.buckets[key]
	now := p.now()
	i := 0
	for i < len(buckets) && now.Sub(buckets[i].startedAt) > p.bucketTTL {
		i++
	}
	if i > 0 {
		buckets = buckets[i:]
		p.buckets[key] = buckets
	}
	return buckets
}

func (p *PercentileDelayProvider) key(req rrequest.Request) string {
	return req.Method + " " + req.URL
}
