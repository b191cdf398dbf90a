package breaker

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/resiliate/resiliate/internal/rlerr"
	"github.com/resiliate/resiliate/internal/rlog"
)

// ProbeToken correlates a half-open probe's eventual outcome back to the
// specific admission that issued it, so a straggler from a stale probe
// cycle can't flip a breaker that has since moved on to a new cycle. The
// zero value never matches a real probe.
type ProbeToken uuid.UUID

// State is the lifecycle state of a single scope's breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config tunes a Breaker. BlockDuration is how long a tripped scope
// rejects admission before allowing a single half-open probe.
// SamplingDuration/WindowsCount configure the rolling failure-rate
// window. MinimumThroughput is the minimum number of outcomes observed
// in the window before FailureThreshold is evaluated at all, so a
// scope with little traffic never trips on a handful of unlucky
// requests. FailureThreshold is the failure ratio, in (0, 1], that
// trips the breaker open.
type Config struct {
	BlockDuration     time.Duration
	SamplingDuration  time.Duration
	WindowsCount      int
	MinimumThroughput int64
	FailureThreshold  float64
}

// DefaultConfig returns reasonable defaults for a 10-window rolling
// metric.
func DefaultConfig() Config {
	return Config{
		BlockDuration:     15 * time.Second,
		SamplingDuration:  30 * time.Second,
		WindowsCount:      10,
		MinimumThroughput: 5,
		FailureThreshold:  0.5,
	}
}

type scope struct {
	mu            sync.Mutex
	state         State
	blockedTil    time.Time
	metrics       *rollingMetrics
	probeToken    ProbeToken
	probeInFlight bool
}

// Breaker is a per-scope circuit breaker. A scope is any caller-chosen
// key, typically a request's (method, URL) or just its host.
// The zero value is not usable; construct with New.
type Breaker struct {
	cfg Config
	log rlog.Logger
	now func() time.Time

	mu     sync.Mutex
	scopes map[string]*scope
}

// New constructs a Breaker. A nil logger defaults to rlog.Nop.
func New(cfg Config, log rlog.Logger) *Breaker {
	if log == nil {
		log = rlog.Nop{}
	}
	return &Breaker{
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		scopes: make(map[string]*scope),
	}
}

func (b *Breaker) scopeFor(key string) *scope {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.scopes[key]
	if !ok {
		s = &scope{metrics: newRollingMetrics(b.cfg.SamplingDuration, b.cfg.WindowsCount, b.now)}
		b.scopes[key] = s
	}
	return s
}

// Allow reports whether an attempt against scope should be admitted,
// and if it is admitted as a half-open probe, the token identifying
// that probe (the zero token otherwise). A Closed scope always admits
// with the zero token. An Open scope admits only after BlockDuration
// has elapsed since it tripped, at which point it transitions to
// HalfOpen, mints a fresh ProbeToken, and admits exactly one probe.
// While that probe is still unresolved, every other caller is refused
// outright rather than minted a second concurrent probe: scopeFor's
// mutex already serializes Allow itself, so the only way two probes
// could otherwise overlap is a caller that outlives BlockDuration
// without ever reporting OnSuccess/OnFailure, which this rejects.
func (b *Breaker) Allow(key string) (bool, ProbeToken) {
	s := b.scopeFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return true, ProbeToken{}
	}

	if s.state == HalfOpen && s.probeInFlight {
		b.log.Warn("circuit breaker refused concurrent half-open probe", rlog.Fields{"scope": key, "error": rlerr.ErrConcurrentProbe.Error()})
		return false, ProbeToken{}
	}

	now := b.now()
	if s.blockedTil.After(now) {
		return false, ProbeToken{}
	}

	s.blockedTil = now.Add(b.cfg.BlockDuration)
	s.state = HalfOpen
	s.probeToken = ProbeToken(uuid.New())
	s.probeInFlight = true
	b.log.Debug("circuit breaker half-open probe admitted", rlog.Fields{"scope": key, "probe": uuid.UUID(s.probeToken).String()})
	return true, s.probeToken
}

// OnSuccess records a successful outcome for scope, identified by the
// token Allow returned for that attempt. A HalfOpen scope closes
// immediately on success, but only if token still matches the scope's
// current probe: a straggler from a probe cycle the breaker has since
// moved past (re-opened and re-probed) must not close it.
func (b *Breaker) OnSuccess(key string, token ProbeToken) {
	s := b.scopeFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == HalfOpen && token == s.probeToken {
		b.close(s, key)
	}
	s.metrics.incrementSuccesses()
}

// OnFailure records a failed outcome for scope, identified by the
// token Allow returned for that attempt. In Closed state this may trip
// the breaker open once the rolling failure ratio crosses
// FailureThreshold with at least MinimumThroughput samples observed.
// In Open state it just extends the failure tally. In HalfOpen state a
// failed probe re-opens the breaker immediately, but only if token
// still matches the scope's current probe.
func (b *Breaker) OnFailure(key string, token ProbeToken) {
	s := b.scopeFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Closed:
		s.metrics.incrementFailures()
		snap := s.metrics.collect()
		if snap.Throughput() >= b.cfg.MinimumThroughput && snap.FailureRatio() >= b.cfg.FailureThreshold {
			b.open(s, key)
		}
	case Open:
		s.metrics.incrementFailures()
	default: // HalfOpen
		if token == s.probeToken {
			b.open(s, key)
		}
	}
}

// State reports the current state of scope without mutating it.
func (b *Breaker) State(key string) State {
	s := b.scopeFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (b *Breaker) close(s *scope, key string) {
	s.metrics.reset()
	s.state = Closed
	s.blockedTil = time.Time{}
	s.probeInFlight = false
	b.log.Info("circuit breaker closed", rlog.Fields{"scope": key})
}

func (b *Breaker) open(s *scope, key string) {
	s.blockedTil = b.now().Add(b.cfg.BlockDuration)
	s.state = Open
	s.probeInFlight = false
	b.log.Warn("circuit breaker opened", rlog.Fields{"scope": key})
}
