package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, `
endpoint: https://api.example.com
timeout: 5s
retry:
  safe_method:
    strategy: sequential
    attempts_count: 4
    delay:
      kind: linear
      min: 50ms
      max: 200ms
  unsafe_method_strategy: single
circuit_breaker:
  block_duration: 30s
  sampling_duration: 10s
  windows_count: 10
  minimum_throughput: 5
  failure_threshold: 0.5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Endpoint != "https://api.example.com" {
		t.Fatalf("unexpected endpoint: %q", cfg.Endpoint)
	}
	if cfg.Retry.SafeMethod.AttemptsCount != 4 {
		t.Fatalf("unexpected attempts count: %d", cfg.Retry.SafeMethod.AttemptsCount)
	}
	if cfg.CircuitBreaker == nil || cfg.CircuitBreaker.FailureThreshold != 0.5 {
		t.Fatalf("expected circuit breaker section to parse")
	}
}

func TestLoadMissingEndpointFails(t *testing.T) {
	path := writeTemp(t, `timeout: 5s`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing endpoint")
	} else if !strings.Contains(err.Error(), "endpoint") {
		t.Fatalf("expected error to mention endpoint, got: %v", err)
	}
}

func TestLoadInvalidDurationFails(t *testing.T) {
	path := writeTemp(t, `
endpoint: https://api.example.com
timeout: not-a-duration
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for invalid timeout duration")
	}
}

func TestValidateRejectsMistypedStrategy(t *testing.T) {
	cfg := &YAMLConfig{Endpoint: "https://api.example.com"}
	cfg.Retry.SafeMethod.Strategy = "sequental"

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected error for mistyped strategy")
	}
	if !strings.Contains(err.Error(), "sequential") {
		t.Fatalf("expected did-you-mean suggestion naming sequential, got: %v", err)
	}
}

func TestValidateRejectsParallelForUnsafeMethods(t *testing.T) {
	cfg := &YAMLConfig{Endpoint: "https://api.example.com"}
	cfg.Retry.UnsafeMethodStrategy = "parallel"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error rejecting parallel retries for unsafe methods")
	}
}

func TestFailureConditionParsesIntoThreshold(t *testing.T) {
	cfg := &YAMLConfig{Endpoint: "https://api.example.com"}
	cfg.CircuitBreaker = &CircuitBreakerConfig{FailureCondition: "errors > 40%"}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.CircuitBreaker.ResolvedFailureThreshold(0.5); got != 0.4 {
		t.Fatalf("expected resolved threshold 0.4, got %v", got)
	}
}

func TestValidateRejectsOutOfRangeFailureThreshold(t *testing.T) {
	cfg := &YAMLConfig{Endpoint: "https://api.example.com"}
	cfg.CircuitBreaker = &CircuitBreakerConfig{FailureThreshold: 1.5}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for out-of-range failure threshold")
	}
}
