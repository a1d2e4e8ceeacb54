// Package circuitbreaker tracks checkout gateway endpoint health and fails
// calls fast while an endpoint is misbehaving. Transport-level protection
// like this belongs to the gateway collaborator; the flow driver itself
// never retries.
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the state of one endpoint's circuit.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

const (
	defaultFailureThreshold         = 5
	defaultOpenStateTimeout         = 30 * time.Second
	defaultHalfOpenSuccessThreshold = 2
)

// endpointState holds the current circuit state for a single endpoint.
type endpointState struct {
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int // used in HalfOpen
	lastFailureTime      time.Time
	openUntil            time.Time
}

// Settings tunes a CircuitBreaker. Zero values select the defaults.
type Settings struct {
	FailureThreshold         int
	OpenStateTimeout         time.Duration
	HalfOpenSuccessThreshold int
}

// CircuitBreaker monitors endpoint health and prevents calls to unhealthy
// endpoints. In-memory, keyed by endpoint name.
type CircuitBreaker struct {
	mu                       sync.RWMutex
	endpoints                map[string]*endpointState
	failureThreshold         int
	openStateTimeout         time.Duration
	halfOpenSuccessThreshold int
}

// New creates a CircuitBreaker with the given settings.
func New(settings Settings) *CircuitBreaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = defaultFailureThreshold
	}
	if settings.OpenStateTimeout <= 0 {
		settings.OpenStateTimeout = defaultOpenStateTimeout
	}
	if settings.HalfOpenSuccessThreshold <= 0 {
		settings.HalfOpenSuccessThreshold = defaultHalfOpenSuccessThreshold
	}
	return &CircuitBreaker{
		endpoints:                make(map[string]*endpointState),
		failureThreshold:         settings.FailureThreshold,
		openStateTimeout:         settings.OpenStateTimeout,
		halfOpenSuccessThreshold: settings.HalfOpenSuccessThreshold,
	}
}

// getEndpointState assumes the caller holds the write lock.
func (cb *CircuitBreaker) getEndpointState(endpoint string) *endpointState {
	es, exists := cb.endpoints[endpoint]
	if !exists {
		es = &endpointState{state: Closed}
		cb.endpoints[endpoint] = es
	}
	return es
}

// IsHealthy checks if requests are allowed for an endpoint. An Open circuit
// whose timeout has expired transitions to HalfOpen and allows the request.
func (cb *CircuitBreaker) IsHealthy(endpoint string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	es := cb.getEndpointState(endpoint)

	switch es.state {
	case Closed:
		return true
	case Open:
		if time.Now().After(es.openUntil) {
			es.state = HalfOpen
			es.consecutiveSuccesses = 0
			return true
		}
		return false
	case HalfOpen:
		return true
	default:
		es.state = Closed
		return true
	}
}

// RecordFailure records a failed call against the endpoint.
func (cb *CircuitBreaker) RecordFailure(endpoint string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	es := cb.getEndpointState(endpoint)
	es.lastFailureTime = time.Now()

	switch es.state {
	case Closed:
		es.consecutiveFailures++
		if es.consecutiveFailures >= cb.failureThreshold {
			es.state = Open
			es.openUntil = time.Now().Add(cb.openStateTimeout)
		}
	case HalfOpen:
		// A failure while probing re-opens the circuit immediately.
		es.state = Open
		es.openUntil = time.Now().Add(cb.openStateTimeout)
		es.consecutiveFailures = 0
		es.consecutiveSuccesses = 0
	case Open:
		return
	}
}

// RecordSuccess records a successful call against the endpoint.
func (cb *CircuitBreaker) RecordSuccess(endpoint string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	es := cb.getEndpointState(endpoint)

	switch es.state {
	case Closed:
		es.consecutiveFailures = 0
	case HalfOpen:
		es.consecutiveSuccesses++
		if es.consecutiveSuccesses >= cb.halfOpenSuccessThreshold {
			es.state = Closed
			es.consecutiveFailures = 0
			es.consecutiveSuccesses = 0
		}
	case Open:
		// IsHealthy should have prevented the call; success only matters
		// in Closed or HalfOpen.
		return
	}
}

// GetState returns the current circuit state for an endpoint, read-only.
// State transitions are handled by IsHealthy and the Record calls.
func (cb *CircuitBreaker) GetState(endpoint string) State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	es, exists := cb.endpoints[endpoint]
	if !exists {
		return Closed
	}
	return es.state
}
