// Package resiliate is the client facade: it composes a pipeline, a
// method-dispatching strategy, and a response classifier into a single
// Request entry point. The effective deadline comes from the explicit
// argument, else the ambient call context, else the configured default.
// The effective priority is the explicit argument (else the configured
// default) composed with the ambient priority via priority.Compose.
package resiliate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/resiliate/resiliate/internal/breaker"
	"github.com/resiliate/resiliate/internal/callctx"
	"github.com/resiliate/resiliate/internal/classify"
	"github.com/resiliate/resiliate/internal/deadline"
	"github.com/resiliate/resiliate/internal/delay"
	"github.com/resiliate/resiliate/internal/pipeline"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/internal/ratelimit"
	"github.com/resiliate/resiliate/internal/rlog"
	"github.com/resiliate/resiliate/internal/strategy"
	"github.com/resiliate/resiliate/internal/transport"
	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

// Client is the orchestration entry point: one Client per logical
// upstream service, safe for concurrent use across goroutines.
type Client struct {
	endpoint         string
	classifier       classify.Classifier
	requestStrategy  strategy.Strategy
	defaultTimeout   time.Duration
	defaultPriority  priority.Priority
	requestEnricher  func(rrequest.Request) (rrequest.Request, error)
	pipeline         pipeline.NextFunc
	log              rlog.Logger
}

// Option configures a Client at construction time.
type Option func(*options)

type options struct {
	safeMethodStrategy   strategy.Strategy
	unsafeMethodStrategy strategy.Strategy
	classifier           classify.Classifier
	timeout              time.Duration
	priority             priority.Priority
	lowTimeoutThreshold  time.Duration
	emitSystemHeaders    bool
	requestEnricher      func(rrequest.Request) (rrequest.Request, error)
	circuitBreaker       *breaker.Breaker
	transport            transport.Transport
	log                  rlog.Logger
	rateLimit            *rateLimitOption
}

type rateLimitOption struct {
	rps   float64
	burst int
}

// WithSafeMethodStrategy overrides the strategy used for GET (default:
// Sequential(3, linear backoff)).
func WithSafeMethodStrategy(s strategy.Strategy) Option {
	return func(o *options) { o.safeMethodStrategy = s }
}

// WithUnsafeMethodStrategy overrides the strategy used for
// POST/PUT/DELETE/PATCH (default: SingleAttempt).
func WithUnsafeMethodStrategy(s strategy.Strategy) Option {
	return func(o *options) { o.unsafeMethodStrategy = s }
}

// WithClassifier overrides the response classifier (default: classify.NewDefault()).
func WithClassifier(c classify.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithTimeout overrides the default per-call timeout (default: 20s).
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithPriority overrides the default priority (default: Normal).
func WithPriority(p priority.Priority) Option {
	return func(o *options) { o.priority = p }
}

// WithLowTimeoutThreshold overrides the low-timeout short-circuit
// threshold (default: 5ms).
func WithLowTimeoutThreshold(d time.Duration) Option {
	return func(o *options) { o.lowTimeoutThreshold = d }
}

// WithoutSystemHeaders disables emitting X-Request-Deadline-At,
// X-Request-Timeout and X-Request-Priority on outbound requests.
func WithoutSystemHeaders() Option {
	return func(o *options) { o.emitSystemHeaders = false }
}

// WithRequestEnricher installs a hook that mutates every outbound
// request immediately before it enters the pipeline.
func WithRequestEnricher(f func(rrequest.Request) (rrequest.Request, error)) Option {
	return func(o *options) { o.requestEnricher = f }
}

// WithCircuitBreaker installs a per-endpoint circuit breaker ahead of
// the low-timeout guard. Omit to run without one.
func WithCircuitBreaker(b *breaker.Breaker) Option {
	return func(o *options) { o.circuitBreaker = b }
}

// WithTransport overrides the terminal transport (default:
// transport.New(transport.DefaultConfig())).
func WithTransport(t transport.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithLogger installs a structured logger (default: rlog.Nop{}).
func WithLogger(l rlog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRateLimit inserts a token-bucket rate limiter ahead of the
// transport, admitting rps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) { o.rateLimit = &rateLimitOption{rps: rps, burst: burst} }
}

// New constructs a Client dispatching to endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	o := &options{
		classifier:          classify.NewDefault(),
		timeout:             20 * time.Second,
		priority:            priority.Normal,
		lowTimeoutThreshold: 5 * time.Millisecond,
		emitSystemHeaders:   true,
		log:                 rlog.Nop{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.safeMethodStrategy == nil {
		seq, err := strategy.NewSequential(3, delay.Linear(100*time.Millisecond, 50*time.Millisecond, 0.2), nil)
		if err != nil {
			return nil, err
		}
		o.safeMethodStrategy = seq
	}
	if o.unsafeMethodStrategy == nil {
		o.unsafeMethodStrategy = strategy.SingleAttempt{}
	}
	if o.transport == nil {
		o.transport = transport.New(transport.DefaultConfig())
	}

	requestStrategy := strategy.NewMethodBased(map[string]strategy.Strategy{
		http.MethodGet:    o.safeMethodStrategy,
		http.MethodHead:   o.safeMethodStrategy,
		http.MethodPost:   o.unsafeMethodStrategy,
		http.MethodPut:    o.unsafeMethodStrategy,
		http.MethodDelete: o.unsafeMethodStrategy,
		http.MethodPatch:  o.unsafeMethodStrategy,
	})

	var modules []pipeline.Module
	if o.circuitBreaker != nil {
		modules = append(modules, pipeline.CircuitBreakerModule{
			Breaker:    o.circuitBreaker,
			Classifier: o.classifier,
			StatusCode: rresponse.StatusCircuitBreakerOut,
		})
	}
	modules = append(modules, pipeline.LowTimeoutModule{Threshold: o.lowTimeoutThreshold})
	if o.rateLimit != nil {
		modules = append(modules, ratelimit.New(o.rateLimit.rps, o.rateLimit.burst))
	}
	modules = append(modules, pipeline.TransportModule{
		Transport:         o.transport,
		EmitSystemHeaders: o.emitSystemHeaders,
	})

	c := &Client{
		endpoint:        endpoint,
		classifier:      o.classifier,
		requestStrategy: requestStrategy,
		defaultTimeout:  o.timeout,
		defaultPriority: o.priority,
		requestEnricher: o.requestEnricher,
		pipeline:        pipeline.Build(modules),
		log:             o.log,
	}
	return c, nil
}

// Request resolves the effective deadline/priority and dispatches req
// through the configured strategy. The returned response is owned by
// the caller, who must Close it exactly once.
func (c *Client) Request(ctx context.Context, req rrequest.Request, opts ...RequestOption) (rresponse.Response, error) {
	ro := requestOptions{}
	for _, opt := range opts {
		opt(&ro)
	}

	if c.requestEnricher != nil {
		enriched, err := c.requestEnricher(req)
		if err != nil {
			return nil, fmt.Errorf("resiliate: request enricher: %w", err)
		}
		req = enriched
	}

	ambient := callctx.Get(ctx)

	effectiveDeadline := ro.deadline
	if effectiveDeadline == nil {
		if ambient.Deadline != nil {
			effectiveDeadline = ambient.Deadline
		} else {
			d := deadline.FromTimeout(c.defaultTimeout)
			effectiveDeadline = &d
		}
	}

	effectivePriority := c.defaultPriority
	if ro.priority != nil {
		effectivePriority = *ro.priority
	}
	if ambient.Priority != nil {
		effectivePriority = priority.Compose(effectivePriority, *ambient.Priority)
	}

	strat := c.requestStrategy
	if ro.strategy != nil {
		strat = ro.strategy
	}

	result, err := strat.Request(ctx, c.sendAttempt, c.endpoint, req, *effectiveDeadline, effectivePriority)
	if err != nil {
		return nil, err
	}
	return result.Response, nil
}

func (c *Client) sendAttempt(ctx context.Context, endpoint string, req rrequest.Request, d deadline.Deadline, p priority.Priority) (strategy.ResponseWithVerdict, error) {
	resp, err := c.pipeline(ctx, endpoint, req, d, p)
	if err != nil {
		return strategy.ResponseWithVerdict{}, err
	}
	verdict := c.classifier.Classify(resp)
	c.log.Debug("attempt completed", rlog.Fields{
		"endpoint": endpoint,
		"method":   req.Method,
		"status":   resp.Status(),
		"verdict":  verdict,
	})
	return strategy.ResponseWithVerdict{Response: resp, Verdict: verdict}, nil
}

// RequestOption overrides per-call defaults for a single Request call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	deadline *deadline.Deadline
	priority *priority.Priority
	strategy strategy.Strategy
}

// WithRequestDeadline pins the deadline for one call, overriding ambient
// context and the client's default timeout.
func WithRequestDeadline(d deadline.Deadline) RequestOption {
	return func(o *requestOptions) { o.deadline = &d }
}

// WithRequestPriority pins the priority for one call.
func WithRequestPriority(p priority.Priority) RequestOption {
	return func(o *requestOptions) { o.priority = &p }
}

// WithRequestStrategy overrides the method-based dispatch for one call.
func WithRequestStrategy(s strategy.Strategy) RequestOption {
	return func(o *requestOptions) { o.strategy = s }
}
