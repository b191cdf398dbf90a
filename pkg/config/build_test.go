package config

import "testing"

func TestBuildConstructsClientFromFullConfig(t *testing.T) {
	cfg := &YAMLConfig{
		Endpoint: "https://api.example.com",
		Timeout:  "2s",
		Priority: "high",
	}
	cfg.Retry.SafeMethod.Strategy = "sequential"
	cfg.Retry.SafeMethod.AttemptsCount = 5
	cfg.Retry.SafeMethod.Delay = DelayConfig{Kind: "linear", Min: "50ms", Multiplier: "10ms"}
	cfg.Retry.UnsafeMethodStrategy = "single"
	cfg.CircuitBreaker = &CircuitBreakerConfig{FailureCondition: "errors > 50%", MinimumThroughput: 10}
	cfg.RateLimit = &RateLimitConfig{RequestsPerSecond: 20, Burst: 5}

	client, err := Build(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatalf("expected a non-nil client")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := &YAMLConfig{}
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error for config missing endpoint")
	}
}

func TestBuildWithPercentileDelay(t *testing.T) {
	cfg := &YAMLConfig{Endpoint: "https://api.example.com"}
	cfg.Retry.SafeMethod.Strategy = "parallel"
	cfg.Retry.SafeMethod.AttemptsCount = 2
	cfg.Retry.SafeMethod.Delay = DelayConfig{Kind: "percentile", Percentile: 0.9, WindowSize: "1m"}

	if _, err := Build(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
