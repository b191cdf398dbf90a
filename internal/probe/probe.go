// Package probe drives a pkg/resiliate.Client against a single
// endpoint at a configured rate and concurrency for the probe CLI,
// collecting one Result per call, trading scenario chaining (data
// feeders, variable extraction, templated request bodies) for
// circuit-breaker and classifier visibility.
package probe

import (
	"context"
	"sync"
	"time"

	"github.com/resiliate/resiliate/internal/attackgen"
	"github.com/resiliate/resiliate/internal/breaker"
	"github.com/resiliate/resiliate/internal/classify"
	"github.com/resiliate/resiliate/pkg/resiliate"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"golang.org/x/time/rate"
)

// Result is one completed attempt, successful or not.
type Result struct {
	Timestamp    time.Time
	Latency      time.Duration
	Status       int
	Verdict      classify.Verdict
	Error        error
	BreakerState breaker.State
}

// Stage ramps the request rate linearly to Target over Duration.
type Stage struct {
	Duration time.Duration
	Target   float64
}

// Config parameterizes a probe run.
type Config struct {
	Method      string
	URLTemplate string // may contain {regex_gen:<pattern>} placeholders
	Headers     map[string]string
	Body        string

	Rate        float64
	Concurrency int
	Duration    time.Duration
	Stages      []Stage
}

// Engine runs a probe Config against a Client, fanning out Concurrency
// workers rate-limited to Rate (or ramped through Stages), each
// issuing requests until ctx is done.
type Engine struct {
	Client     *resiliate.Client
	Breaker    *breaker.Breaker // optional, only used to annotate Result.BreakerState
	Classifier classify.Classifier
}

func (e *Engine) classifier() classify.Classifier {
	if e.Classifier != nil {
		return e.Classifier
	}
	return classify.NewDefault()
}

// Run executes the probe until ctx is cancelled or cfg.Duration
// elapses (whichever first), streaming one Result per completed
// attempt to results. Run closes results before returning.
func (e *Engine) Run(ctx context.Context, cfg Config, results chan<- Result) {
	defer close(results)

	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	var gen *attackgen.Generator
	if attackgen.HasPlaceholders(cfg.URLTemplate) {
		g, err := attackgen.New(cfg.URLTemplate)
		if err == nil {
			gen = g
		}
	}

	initialLimit := rate.Limit(cfg.Rate)
	if len(cfg.Stages) > 0 {
		initialLimit = rate.Limit(1)
	}
	limiter := rate.NewLimiter(initialLimit, 1)

	if len(cfg.Stages) > 0 {
		go runStages(ctx, cfg.Stages, limiter)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				select {
				case <-ctx.Done():
					return
				default:
				}

				result := e.attempt(ctx, cfg, gen)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
}

func (e *Engine) attempt(ctx context.Context, cfg Config, gen *attackgen.Generator) Result {
	url := cfg.URLTemplate
	if gen != nil {
		url = gen.Expand(url)
	}

	req := rrequest.New(cfg.Method, url)
	if len(cfg.Headers) > 0 {
		h := make(map[string][]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			h[k] = []string{v}
		}
		req = req.UpdateHeaders(h)
	}
	if cfg.Body != "" {
		req.Body = []byte(cfg.Body)
	}

	start := time.Now()
	resp, err := e.Client.Request(ctx, req)
	latency := time.Since(start)

	result := Result{Timestamp: start, Latency: latency, Error: err}
	if err != nil {
		return result
	}
	defer resp.Close()

	result.Status = resp.Status()
	result.Verdict = e.classifier().Classify(resp)
	if e.Breaker != nil {
		result.BreakerState = e.Breaker.State(cfg.URLTemplate)
	}
	return result
}

func runStages(ctx context.Context, stages []Stage, limiter *rate.Limiter) {
	for _, stage := range stages {
		startLimit := float64(limiter.Limit())
		targetLimit := stage.Target
		if targetLimit == 0 {
			targetLimit = 1
		}
		ticker := time.NewTicker(100 * time.Millisecond)
		startTime := time.Now()

		done := false
		for !done {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case t := <-ticker.C:
				elapsed := t.Sub(startTime)
				if elapsed >= stage.Duration {
					limiter.SetLimit(rate.Limit(targetLimit))
					done = true
					break
				}
				progress := float64(elapsed) / float64(stage.Duration)
				limiter.SetLimit(rate.Limit(startLimit + (targetLimit-startLimit)*progress))
			}
		}
		ticker.Stop()
	}
}
