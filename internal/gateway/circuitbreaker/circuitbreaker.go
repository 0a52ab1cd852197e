// Package circuitbreaker implements a three-state circuit breaker
// (Closed -> Open -> HalfOpen -> Closed) driven by payment gateway outcomes.
// While the circuit is open, authorization attempts are short-circuited
// without touching the gateway.
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

// String returns the state label used in logs.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

const (
	defaultFailureThreshold  = 3
	defaultResetTimeout      = 30 * time.Second
	defaultHalfOpenSuccesses = 2
)

// Config tunes the breaker. Zero values fall back to defaults.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before allowing a
	// half-open probe.
	ResetTimeout time.Duration
	// HalfOpenSuccesses is the number of consecutive successes in half-open
	// state needed to close the circuit again.
	HalfOpenSuccesses int
	// OnStateChange, if set, is invoked (outside internal locking concerns,
	// but synchronously) whenever the state changes. Used to keep the circuit
	// state gauge truthful.
	OnStateChange func(State)
}

// CircuitBreaker guards a single payment gateway.
type CircuitBreaker struct {
	mu                  sync.Mutex
	cfg                 Config
	state               State
	consecutiveFailures int
	halfOpenSuccesses   int
	openUntil           time.Time
}

// New creates a CircuitBreaker, filling in defaults for zero config values.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	if cfg.HalfOpenSuccesses <= 0 {
		cfg.HalfOpenSuccesses = defaultHalfOpenSuccesses
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// setState transitions the machine and fires the state-change hook.
// Caller must hold the lock.
func (cb *CircuitBreaker) setState(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(s)
	}
}

// AllowRequest reports whether a gateway call may be attempted. An expired
// open period transitions the circuit to half-open and allows a probe.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Now().After(cb.openUntil) {
			cb.halfOpenSuccesses = 0
			cb.setState(StateHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess records a definitive gateway response. In half-open state
// enough successes close the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.consecutiveFailures = 0
	case StateHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.cfg.HalfOpenSuccesses {
			cb.consecutiveFailures = 0
			cb.halfOpenSuccesses = 0
			cb.setState(StateClosed)
		}
	}
}

// RecordFailure records a transport or unexpected gateway failure. Meeting the
// threshold opens the circuit; any failure during half-open reopens it.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
			cb.openUntil = time.Now().Add(cb.cfg.ResetTimeout)
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.consecutiveFailures = 0
		cb.halfOpenSuccesses = 0
		cb.openUntil = time.Now().Add(cb.cfg.ResetTimeout)
		cb.setState(StateOpen)
	}
}

// GetState returns the current state without transitioning it.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
