package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/resiliate/resiliate/internal/breaker"
	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/delay"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/internal/strategy"
	"github.com/resiliate/resiliate/internal/transport"
	"github.com/resiliate/resiliate/pkg/resiliate"
	"github.com/resiliate/resiliate/pkg/rrequest"
)

// Build constructs a resiliate.Client from cfg, wiring the retry
// strategy, circuit breaker, rate limiter, and transport it describes.
// Any extra opts are applied after the config-derived ones, so callers
// can still override individual pieces (e.g. a test transport).
func Build(cfg *YAMLConfig, opts ...resiliate.Option) (*resiliate.Client, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	built, err := buildOpts(cfg)
	if err != nil {
		return nil, err
	}
	built = append(built, opts...)

	return resiliate.New(cfg.Endpoint, built...)
}

func buildOpts(cfg *YAMLConfig) ([]resiliate.Option, error) {
	var opts []resiliate.Option

	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config: timeout: %w", err)
		}
		opts = append(opts, resiliate.WithTimeout(d))
	}
	if cfg.LowTimeoutThreshold != "" {
		d, err := time.ParseDuration(cfg.LowTimeoutThreshold)
		if err != nil {
			return nil, fmt.Errorf("config: low_timeout_threshold: %w", err)
		}
		opts = append(opts, resiliate.WithLowTimeoutThreshold(d))
	}
	if cfg.Priority != "" {
		p, ok := priority.Parse(cfg.Priority)
		if !ok {
			return nil, fmt.Errorf("config: priority: unknown value %q", cfg.Priority)
		}
		opts = append(opts, resiliate.WithPriority(p))
	}
	if cfg.EmitSystemHeaders != nil && !*cfg.EmitSystemHeaders {
		opts = append(opts, resiliate.WithoutSystemHeaders())
	}

	safeStrategy, err := buildSafeStrategy(cfg)
	if err != nil {
		return nil, err
	}
	if safeStrategy != nil {
		opts = append(opts, resiliate.WithSafeMethodStrategy(safeStrategy))
	}

	if u := cfg.Retry.UnsafeMethodStrategy; u != "" {
		switch strings.ToLower(u) {
		case "single":
			opts = append(opts, resiliate.WithUnsafeMethodStrategy(strategy.SingleAttempt{}))
		case "sequential":
			seq, err := strategy.NewSequential(3, delay.Constant(100*time.Millisecond), nil)
			if err != nil {
				return nil, err
			}
			opts = append(opts, resiliate.WithUnsafeMethodStrategy(seq))
		}
	}

	if cfg.CircuitBreaker != nil {
		b, err := buildBreaker(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, resiliate.WithCircuitBreaker(b))
	}

	if cfg.RateLimit != nil {
		opts = append(opts, resiliate.WithRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	opts = append(opts, resiliate.WithTransport(transport.New(buildTransportConfig(cfg.Transport))))

	return opts, nil
}

func buildSafeStrategy(cfg *YAMLConfig) (strategy.Strategy, error) {
	safe := cfg.Retry.SafeMethod
	if safe.Strategy == "" {
		return nil, nil
	}

	attempts := safe.AttemptsCount
	if attempts <= 0 {
		attempts = 3
	}

	delayProvider, err := buildDelayProvider(safe.Delay)
	if err != nil {
		return nil, err
	}

	var deadlineProvider deadline.Provider
	if safe.SplitDeadline {
		deadlineProvider = deadline.Split(nil)
	}

	switch strings.ToLower(safe.Strategy) {
	case "single":
		return strategy.SingleAttempt{}, nil
	case "parallel":
		return strategy.NewParallel(attempts, delayProvider)
	default: // "sequential"
		return strategy.NewSequential(attempts, delayProvider, deadlineProvider)
	}
}

func buildDelayProvider(d DelayConfig) (delay.Provider, error) {
	switch d.Kind {
	case "percentile":
		cfg := delay.DefaultPercentileDelayConfig()
		if d.Percentile != 0 {
			cfg.Percentile = d.Percentile
		}
		if d.Min != "" {
			parsed, err := time.ParseDuration(d.Min)
			if err != nil {
				return nil, fmt.Errorf("config: delay.min: %w", err)
			}
			cfg.MinDelay = parsed
		}
		if d.Max != "" {
			parsed, err := time.ParseDuration(d.Max)
			if err != nil {
				return nil, fmt.Errorf("config: delay.max: %w", err)
			}
			cfg.MaxDelay = parsed
		}
		if d.WindowSize != "" {
			parsed, err := time.ParseDuration(d.WindowSize)
			if err != nil {
				return nil, fmt.Errorf("config: delay.window_size: %w", err)
			}
			cfg.WindowSize = parsed
		}
		if d.Buckets > 0 {
			cfg.BucketsCount = d.Buckets
		}
		provider, err := delay.NewPercentileDelayProvider(cfg)
		if err != nil {
			return nil, err
		}
		// Sequential/Parallel only pass the attempt index; the percentile
		// provider keys its observations by (method, URL), so a scope-free
		// caller just gets the catch-all bucket for an empty request key.
		return func(attempt int) time.Duration {
			return provider.Delay(rrequest.New(http.MethodGet, ""), attempt)
		}, nil

	case "linear":
		min := 100 * time.Millisecond
		mult := 50 * time.Millisecond
		if d.Min != "" {
			if parsed, err := time.ParseDuration(d.Min); err == nil {
				min = parsed
			}
		}
		if d.Multiplier != "" {
			if parsed, err := time.ParseDuration(d.Multiplier); err == nil {
				mult = parsed
			}
		}
		return delay.Linear(min, mult, d.Jitter), nil

	default: // "constant", ""
		constDelay := 100 * time.Millisecond
		if d.Min != "" {
			if parsed, err := time.ParseDuration(d.Min); err == nil {
				constDelay = parsed
			}
		}
		return delay.Constant(constDelay), nil
	}
}

func buildBreaker(cfg *YAMLConfig) (*breaker.Breaker, error) {
	defaults := breaker.DefaultConfig()
	cb := cfg.CircuitBreaker

	bcfg := defaults
	if cb.BlockDuration != "" {
		d, err := time.ParseDuration(cb.BlockDuration)
		if err != nil {
			return nil, fmt.Errorf("config: circuit_breaker.block_duration: %w", err)
		}
		bcfg.BlockDuration = d
	}
	if cb.SamplingDuration != "" {
		d, err := time.ParseDuration(cb.SamplingDuration)
		if err != nil {
			return nil, fmt.Errorf("config: circuit_breaker.sampling_duration: %w", err)
		}
		bcfg.SamplingDuration = d
	}
	if cb.WindowsCount > 0 {
		bcfg.WindowsCount = cb.WindowsCount
	}
	if cb.MinimumThroughput > 0 {
		bcfg.MinimumThroughput = cb.MinimumThroughput
	}
	bcfg.FailureThreshold = cb.ResolvedFailureThreshold(defaults.FailureThreshold)

	return breaker.New(bcfg, nil), nil
}

func buildTransportConfig(t TransportConfig) transport.Config {
	cfg := transport.DefaultConfig()
	if t.MaxConnsPerHost > 0 {
		cfg.MaxConnsPerHost = t.MaxConnsPerHost
	}
	cfg.InsecureSkipVerify = t.InsecureSkipVerify
	cfg.ForceHTTP2 = t.ForceHTTP2 || cfg.ForceHTTP2
	cfg.H2C = t.H2C
	return cfg
}
