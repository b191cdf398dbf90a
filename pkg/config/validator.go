package config

import (
	"fmt"
	"strings"
)

// ValidationError is one field-level configuration problem, carrying
// enough context to print a precise, correctable message.
type ValidationError struct {
	Field      string
	Value      string
	Message    string
	Expected   string
	Hint       string
	DidYouMean string
}

// ValidationResult accumulates ValidationErrors across a whole config
// tree so Validate can report every problem in one pass instead of
// failing on the first one.
type ValidationResult struct {
	Errors []ValidationError
}

func (v *ValidationResult) Add(err ValidationError) {
	v.Errors = append(v.Errors, err)
}

func (v *ValidationResult) HasErrors() bool {
	return len(v.Errors) > 0
}

// lines renders one error's detail rows without connectors;
// FormatErrors prefixes each with "├─", or "└─" for the last one.
func (e ValidationError) lines() []string {
	var rows []string
	if e.Value != "" {
		rows = append(rows, fmt.Sprintf("Value: %q", truncate(e.Value, 50)))
	}
	rows = append(rows, fmt.Sprintf("Error: %s", e.Message))
	if e.Expected != "" {
		rows = append(rows, fmt.Sprintf("Expected: %s", e.Expected))
	}
	if e.DidYouMean != "" {
		rows = append(rows, fmt.Sprintf("Did you mean: %q?", e.DidYouMean))
	}
	if e.Hint != "" {
		rows = append(rows, fmt.Sprintf("💡 Hint: %s", e.Hint))
	}
	return rows
}

// FormatErrors renders every accumulated error as a connector-drawn
// block, the last row of each block always capped with "└─".
func (v *ValidationResult) FormatErrors() string {
	if !v.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n❌ Configuration Errors:\n")

	for i, err := range v.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %s\n", i+1, err.Field))
		rows := err.lines()
		for j, row := range rows {
			connector := "├─"
			if j == len(rows)-1 {
				connector = "└─"
			}
			sb.WriteString(fmt.Sprintf("     %s %s\n", connector, row))
		}
	}

	sb.WriteString("\n📖 For documentation, see: https://github.com/resiliate/resiliate#yaml-configuration-guide\n")
	return sb.String()
}

var validTopLevelFields = []string{"endpoint", "timeout", "low_timeout_threshold", "priority", "emit_system_headers", "retry", "circuit_breaker", "rate_limit", "transport"}
var validRetryFields = []string{"safe_method", "unsafe_method_strategy"}
var validDelayFields = []string{"kind", "min", "max", "multiplier", "jitter", "percentile", "window_size", "buckets"}
var validCircuitBreakerFields = []string{"block_duration", "sampling_duration", "windows_count", "minimum_throughput", "failure_threshold", "failure_condition"}
var validStrategyNames = []string{"single", "sequential", "parallel"}

var fieldHints = map[string]string{
	"endpoint":                           "Base URL of the upstream service, e.g. https://api.example.com",
	"timeout":                            "Default per-call timeout with unit (e.g., '5s', '500ms')",
	"low_timeout_threshold":              "Below this remaining budget an attempt is rejected without a network call (e.g., '5ms')",
	"priority":                           "One of: high, normal, low",
	"retry.safe_method.strategy":         "One of: single, sequential, parallel",
	"retry.safe_method.delay.kind":       "One of: constant, linear, percentile",
	"retry.unsafe_method_strategy":       "One of: single, sequential",
	"circuit_breaker.failure_threshold":  "Fraction of failed calls in the rolling window that trips the breaker, e.g. 0.5",
	"rate_limit.requests_per_second":     "Positive token-bucket refill rate",
}

// editDistance computes the Levenshtein distance between a and b using
// two rolling rows instead of a full matrix, since only the previous
// row is ever read.
func editDistance(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// FindClosestMatch returns the entry of validOptions nearest to input
// by edit distance, or "" if nothing is close enough to be worth
// suggesting (more than half the candidate's length plus one away) or input
// already matches one exactly.
func FindClosestMatch(input string, validOptions []string) string {
	if input == "" {
		return ""
	}

	bestMatch := ""
	bestDistance := len(input) + len(validOptions) + 1

	for _, option := range validOptions {
		if strings.EqualFold(input, option) {
			return ""
		}
		distance := editDistance(input, option)
		if distance < bestDistance && distance <= len(option)/2+1 {
			bestDistance = distance
			bestMatch = option
		}
	}

	return bestMatch
}

// GetHint returns the configured hint for field, if any.
func GetHint(field string) string {
	return fieldHints[field]
}

// ValidateStrategyName checks name against the known strategy set,
// case-insensitively, and suggests a correction on mismatch.
func ValidateStrategyName(name string) (bool, string) {
	for _, valid := range validStrategyNames {
		if strings.EqualFold(name, valid) {
			return true, ""
		}
	}
	return false, FindClosestMatch(name, validStrategyNames)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
