// Package rlerr collects the sentinel errors for the core's fail-fast
// programming-error taxonomy (spec section 7). These are construction-time
// or first-use errors; transport/timeout failures are never surfaced this
// way, they become synthetic responses instead.
package rlerr

import "errors"

var (
	// ErrUnmappedMethod is returned when MethodBased dispatch has no
	// strategy registered for request.Method.
	ErrUnmappedMethod = errors.New("resiliate: no strategy mapped for method")

	// ErrInvalidAttemptsCount is returned when a strategy is constructed
	// with attempts_count < 1.
	ErrInvalidAttemptsCount = errors.New("resiliate: attempts count must be >= 1")

	// ErrInvalidDeadline is returned when a Deadline is constructed from
	// an implausible absolute time.
	ErrInvalidDeadline = errors.New("resiliate: invalid deadline")

	// ErrInvalidDelayProvider is returned when a delay provider is
	// constructed with out-of-range parameters.
	ErrInvalidDelayProvider = errors.New("resiliate: invalid delay provider configuration")

	// ErrConcurrentProbe names the condition of a half-open scope being
	// asked for a second probe while one is in flight. Breaker.Allow
	// refuses that request and logs this error's text; it is not returned.
	ErrConcurrentProbe = errors.New("resiliate: circuit breaker admitted concurrent half-open probes")

	// ErrPipelineUnsupported is raised if the pipeline's terminal
	// function is reached without a transport module terminating it.
	ErrPipelineUnsupported = errors.New("resiliate: pipeline has no terminal module")
)
