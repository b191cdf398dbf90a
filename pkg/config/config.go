// Package config loads and validates the YAML configuration describing
// a resiliate Client: endpoint, timeouts, retry strategy, circuit
// breaker thresholds, and percentile-delay tuning.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/resiliate/resiliate/internal/circuitbreaker"
	"gopkg.in/yaml.v3"
)

// YAMLConfig is the on-disk configuration shape for a resiliate Client.
type YAMLConfig struct {
	Endpoint string `yaml:"endpoint"`

	Timeout             string `yaml:"timeout,omitempty"`
	LowTimeoutThreshold string `yaml:"low_timeout_threshold,omitempty"`
	Priority            string `yaml:"priority,omitempty"`
	EmitSystemHeaders   *bool  `yaml:"emit_system_headers,omitempty"`

	Retry struct {
		SafeMethod struct {
			Strategy      string      `yaml:"strategy,omitempty"` // sequential, parallel, single
			AttemptsCount int         `yaml:"attempts_count,omitempty"`
			Delay         DelayConfig `yaml:"delay,omitempty"`
			SplitDeadline bool        `yaml:"split_deadline,omitempty"`
		} `yaml:"safe_method,omitempty"`
		UnsafeMethodStrategy string `yaml:"unsafe_method_strategy,omitempty"` // single, sequential
	} `yaml:"retry,omitempty"`

	CircuitBreaker *CircuitBreakerConfig `yaml:"circuit_breaker,omitempty"`
	RateLimit      *RateLimitConfig      `yaml:"rate_limit,omitempty"`
	Transport      TransportConfig       `yaml:"transport,omitempty"`
}

// DelayConfig configures an inter-attempt delay provider.
type DelayConfig struct {
	Kind       string  `yaml:"kind,omitempty"` // constant, linear, percentile
	Min        string  `yaml:"min,omitempty"`
	Max        string  `yaml:"max,omitempty"`
	Multiplier string  `yaml:"multiplier,omitempty"`
	Jitter     float64 `yaml:"jitter,omitempty"`
	Percentile float64 `yaml:"percentile,omitempty"`
	WindowSize string  `yaml:"window_size,omitempty"`
	Buckets    int     `yaml:"buckets,omitempty"`
}

// CircuitBreakerConfig configures the per-endpoint circuit breaker.
// FailureThreshold and FailureCondition are alternative ways to set
// the same value: FailureCondition accepts a human-readable
// expression like "errors > 50%" and takes precedence if both are set.
type CircuitBreakerConfig struct {
	BlockDuration     string  `yaml:"block_duration,omitempty"`
	SamplingDuration  string  `yaml:"sampling_duration,omitempty"`
	WindowsCount      int     `yaml:"windows_count,omitempty"`
	MinimumThroughput int64   `yaml:"minimum_throughput,omitempty"`
	FailureThreshold  float64 `yaml:"failure_threshold,omitempty"`
	FailureCondition  string  `yaml:"failure_condition,omitempty"`
}

// ResolvedFailureThreshold returns the effective failure ratio:
// FailureCondition parsed if set, otherwise FailureThreshold, otherwise
// the given fallback.
func (cb *CircuitBreakerConfig) ResolvedFailureThreshold(fallback float64) float64 {
	if cb.FailureCondition != "" {
		if threshold, err := circuitbreaker.ParseFailureCondition(cb.FailureCondition); err == nil {
			return threshold
		}
	}
	if cb.FailureThreshold != 0 {
		return cb.FailureThreshold
	}
	return fallback
}

// RateLimitConfig configures the optional token-bucket rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}

// TransportConfig configures the underlying HTTP transport.
type TransportConfig struct {
	MaxConnsPerHost    int  `yaml:"max_conns_per_host,omitempty"`
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty"`
	ForceHTTP2         bool `yaml:"force_http2,omitempty"`
	H2C                bool `yaml:"h2c,omitempty"`
}

// Load reads, parses, and validates the YAML file at path.
func Load(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg for missing required fields and malformed
// durations, returning every problem found rather than stopping at the
// first.
func Validate(cfg *YAMLConfig) error {
	result := &ValidationResult{}

	if cfg.Endpoint == "" {
		result.Add(ValidationError{
			Field:   "endpoint",
			Message: "missing required field",
			Hint:    "set endpoint to the base URL of the upstream service, e.g. https://api.example.com",
		})
	}

	checkDuration(result, "timeout", cfg.Timeout)
	checkDuration(result, "low_timeout_threshold", cfg.LowTimeoutThreshold)

	if cfg.Priority != "" {
		switch cfg.Priority {
		case "high", "normal", "low":
		default:
			result.Add(ValidationError{
				Field:    "priority",
				Value:    cfg.Priority,
				Message:  "invalid priority",
				Expected: "one of: high, normal, low",
			})
		}
	}

	safe := &cfg.Retry.SafeMethod
	if safe.Strategy != "" {
		if ok, suggestion := ValidateStrategyName(safe.Strategy); !ok {
			result.Add(ValidationError{
				Field:      "retry.safe_method.strategy",
				Value:      safe.Strategy,
				Message:    "unknown strategy",
				Expected:   "one of: sequential, parallel, single",
				DidYouMean: suggestion,
				Hint:       GetHint("retry.safe_method.strategy"),
			})
		}
	}
	if safe.Strategy != "single" && safe.AttemptsCount < 0 {
		result.Add(ValidationError{
			Field:    "retry.safe_method.attempts_count",
			Value:    fmt.Sprintf("%d", safe.AttemptsCount),
			Message:  "attempts count cannot be negative",
			Expected: "non-negative integer, 0 means the default of 3",
		})
	}
	validateDelay(result, "retry.safe_method.delay", safe.Delay)

	if u := cfg.Retry.UnsafeMethodStrategy; u != "" {
		if ok, suggestion := ValidateStrategyName(u); !ok || strings.EqualFold(u, "parallel") {
			result.Add(ValidationError{
				Field:      "retry.unsafe_method_strategy",
				Value:      u,
				Message:    "unknown strategy",
				Expected:   "one of: single, sequential",
				DidYouMean: suggestion,
				Hint:       GetHint("retry.unsafe_method_strategy"),
			})
		}
	}

	if cb := cfg.CircuitBreaker; cb != nil {
		checkDuration(result, "circuit_breaker.block_duration", cb.BlockDuration)
		checkDuration(result, "circuit_breaker.sampling_duration", cb.SamplingDuration)
		if cb.WindowsCount < 0 {
			result.Add(ValidationError{
				Field:   "circuit_breaker.windows_count",
				Value:   fmt.Sprintf("%d", cb.WindowsCount),
				Message: "windows count cannot be negative",
			})
		}
		if cb.FailureCondition != "" {
			if _, err := circuitbreaker.ParseFailureCondition(cb.FailureCondition); err != nil {
				result.Add(ValidationError{
					Field:    "circuit_breaker.failure_condition",
					Value:    cb.FailureCondition,
					Message:  err.Error(),
					Expected: "an expression like 'errors > 50%' or 'error_rate > 0.5'",
				})
			}
		} else if cb.FailureThreshold != 0 && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
			result.Add(ValidationError{
				Field:    "circuit_breaker.failure_threshold",
				Value:    fmt.Sprintf("%v", cb.FailureThreshold),
				Message:  "failure threshold must be in (0, 1]",
				Expected: "a fraction such as 0.5",
			})
		}
	}

	if rl := cfg.RateLimit; rl != nil && rl.RequestsPerSecond <= 0 {
		result.Add(ValidationError{
			Field:    "rate_limit.requests_per_second",
			Value:    fmt.Sprintf("%v", rl.RequestsPerSecond),
			Message:  "requests per second must be greater than 0",
			Expected: "a positive number",
		})
	}

	if result.HasErrors() {
		return fmt.Errorf("%s", result.FormatErrors())
	}
	return nil
}

func validateDelay(result *ValidationResult, field string, d DelayConfig) {
	switch d.Kind {
	case "", "constant", "linear":
	case "percentile":
		if d.Percentile != 0 && (d.Percentile <= 0 || d.Percentile >= 1) {
			result.Add(ValidationError{
				Field:    field + ".percentile",
				Value:    fmt.Sprintf("%v", d.Percentile),
				Message:  "percentile must be in (0, 1)",
				Expected: "a fraction such as 0.95",
			})
		}
		checkDuration(result, field+".window_size", d.WindowSize)
	default:
		result.Add(ValidationError{
			Field:    field + ".kind",
			Value:    d.Kind,
			Message:  "unknown delay kind",
			Expected: "one of: constant, linear, percentile",
		})
	}
	checkDuration(result, field+".min", d.Min)
	checkDuration(result, field+".max", d.Max)
	checkDuration(result, field+".multiplier", d.Multiplier)
}

func checkDuration(result *ValidationResult, field, value string) {
	if value == "" {
		return
	}
	if _, err := time.ParseDuration(value); err != nil {
		result.Add(ValidationError{
			Field:    field,
			Value:    value,
			Message:  "invalid duration",
			Expected: "a Go duration string, e.g. 250ms or 5s",
		})
	}
}
