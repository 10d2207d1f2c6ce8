// Package circuitbreaker tracks the health of named downstream sinks and
// stops calling a sink after repeated failures until a reset timeout passes.
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	}
	return "Unknown"
}

const (
	defaultFailureThreshold  = 3
	defaultResetTimeout      = 30 * time.Second
	defaultHalfOpenSuccesses = 1
)

// Config holds the breaker thresholds. Zero values take the defaults.
type Config struct {
	FailureThreshold  int           `mapstructure:"failure_threshold"`
	ResetTimeout      time.Duration `mapstructure:"reset_timeout"`
	HalfOpenSuccesses int           `mapstructure:"half_open_successes"`
}

type sinkState struct {
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	openUntil            time.Time
}

// CircuitBreaker is an in-memory, per-name breaker safe for concurrent use.
type CircuitBreaker struct {
	mu    sync.Mutex
	sinks map[string]*sinkState
	cfg   Config
	now   func() time.Time
}

// NewCircuitBreaker creates a CircuitBreaker from cfg.
func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	if cfg.HalfOpenSuccesses <= 0 {
		cfg.HalfOpenSuccesses = defaultHalfOpenSuccesses
	}
	return &CircuitBreaker{
		sinks: make(map[string]*sinkState),
		cfg:   cfg,
		now:   time.Now,
	}
}

// getState assumes cb.mu is held.
func (cb *CircuitBreaker) getState(name string) *sinkState {
	s, ok := cb.sinks[name]
	if !ok {
		s = &sinkState{state: StateClosed}
		cb.sinks[name] = s
	}
	return s
}

// AllowRequest reports whether name may be called. An open circuit whose
// timeout has passed moves to half-open and lets the call through.
func (cb *CircuitBreaker) AllowRequest(name string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := cb.getState(name)
	switch s.state {
	case StateOpen:
		if cb.now().Before(s.openUntil) {
			return false
		}
		s.state = StateHalfOpen
		s.consecutiveFailures = 0
		s.consecutiveSuccesses = 0
		return true
	default:
		return true
	}
}

// RecordFailure records a failed call to name.
func (cb *CircuitBreaker) RecordFailure(name string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := cb.getState(name)
	switch s.state {
	case StateClosed:
		s.consecutiveFailures++
		if s.consecutiveFailures >= cb.cfg.FailureThreshold {
			cb.trip(s)
		}
	case StateHalfOpen:
		cb.trip(s)
	case StateOpen:
		// already open; the reset window is not extended
	}
}

func (cb *CircuitBreaker) trip(s *sinkState) {
	s.state = StateOpen
	s.consecutiveFailures = cb.cfg.FailureThreshold
	s.consecutiveSuccesses = 0
	s.openUntil = cb.now().Add(cb.cfg.ResetTimeout)
}

// RecordSuccess records a successful call to name.
func (cb *CircuitBreaker) RecordSuccess(name string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.sinks[name]
	if !ok {
		return
	}
	switch s.state {
	case StateClosed:
		s.consecutiveFailures = 0
	case StateHalfOpen:
		s.consecutiveSuccesses++
		if s.consecutiveSuccesses >= cb.cfg.HalfOpenSuccesses {
			s.state = StateClosed
			s.consecutiveFailures = 0
			s.consecutiveSuccesses = 0
		}
	}
}

// GetStatus returns the state and consecutive failure count for name
// without transitioning it.
func (cb *CircuitBreaker) GetStatus(name string) (State, int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s, ok := cb.sinks[name]
	if !ok {
		return StateClosed, 0
	}
	return s.state, s.consecutiveFailures
}
