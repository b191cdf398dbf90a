// Package circuitbreaker parses the human-friendly failure-condition
// strings YAML configuration accepts (e.g. "errors > 50%") into the
// float64 ratio internal/breaker.Config.FailureThreshold expects.
package circuitbreaker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// conditionPattern matches expressions like "errors > 10%" or
// "error_rate > 0.1". Only a ratio metric makes sense against
// internal/breaker's rolling FailureRatio, so the metric name is
// accepted but not distinguished; only the operator and threshold are
// used, and only ">"/">=" are meaningful for a trip condition.
var conditionPattern = regexp.MustCompile(`(?i)(errors?|error_rate|failures?)\s*(>=?)\s*([\d.]+)(%)?`)

// ParseFailureCondition parses expr into the failure ratio, in (0, 1],
// that should trip a breaker.
func ParseFailureCondition(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("circuitbreaker: empty failure condition")
	}

	matches := conditionPattern.FindStringSubmatch(expr)
	if matches == nil {
		return 0, fmt.Errorf("circuitbreaker: invalid failure condition %q, expected format like 'errors > 50%%' or 'error_rate > 0.5'", expr)
	}

	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return 0, fmt.Errorf("circuitbreaker: invalid threshold %q: %w", matches[3], err)
	}
	if matches[4] == "%" {
		threshold /= 100
	}

	if threshold <= 0 || threshold > 1 {
		return 0, fmt.Errorf("circuitbreaker: failure condition %q resolves to %.4f, outside (0, 1]", expr, threshold)
	}

	return threshold, nil
}
