package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling a failing dependency for resetTimeout after
// maxFailures consecutive failures, then lets one trial call through.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mutex         sync.Mutex
	state         CircuitState
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        StateClosed,
	}
}

// Do runs fn unless the circuit is open. Context cancellation by the caller
// is not counted as a dependency failure.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := fn(ctx)

	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.trialInFlight = false

	if err != nil && ctx.Err() == nil {
		cb.onFailure()
		return err
	}
	if err == nil {
		cb.onSuccess()
	}
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
	}
	if cb.state == StateHalfOpen {
		if cb.trialInFlight {
			return ErrCircuitOpen
		}
		cb.trialInFlight = true
	}
	return nil
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		if cb.state != StateOpen {
			logrus.WithField("breaker", cb.name).Warn("Circuit opened")
		}
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	if cb.state == StateHalfOpen {
		logrus.WithField("breaker", cb.name).Info("Circuit closed")
	}
	cb.state = StateClosed
	cb.failures = 0
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}
