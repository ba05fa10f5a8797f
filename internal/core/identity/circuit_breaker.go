package identity

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// circuitState represents the state of a circuit breaker
type circuitState int

const (
	stateClosed   circuitState = iota // Normal operation
	stateOpen                         // Source is failing, calls are skipped
	stateHalfOpen                     // One probe allowed through
)

func (s circuitState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// SourceHealth is a snapshot of one source's breaker
type SourceHealth struct {
	LastFailure time.Time `json:"lastFailure,omitempty"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
}

// circuitBreaker tracks consecutive transport failures per source.
// NotFound counts as success: only transport errors open the circuit.
// An open circuit makes the engine skip the source, which then counts as
// missing for precedence, the same as any other failure.
type circuitBreaker struct {
	failures         map[Source]int
	lastFailure      map[Source]time.Time
	state            map[Source]circuitState
	failureThreshold int
	openDuration     time.Duration
	mu               sync.Mutex
}

func newCircuitBreaker(threshold int, openDuration time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openDuration <= 0 {
		openDuration = time.Minute
	}
	return &circuitBreaker{
		failureThreshold: threshold,
		openDuration:     openDuration,
		failures:         make(map[Source]int),
		lastFailure:      make(map[Source]time.Time),
		state:            make(map[Source]circuitState),
	}
}

// canAttempt reports whether the source may be called now
func (cb *circuitBreaker) canAttempt(source Source) (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state[source] {
	case stateOpen:
		lastFail := cb.lastFailure[source]
		if time.Since(lastFail) > cb.openDuration {
			cb.state[source] = stateHalfOpen
			log.Printf("[SOURCE-CIRCUIT] Circuit for source '%s' is now HALF-OPEN (testing)", source)
			return true, nil
		}
		return false, fmt.Errorf(
			"circuit breaker open for source '%s' (failures: %d, next retry: %s)",
			source,
			cb.failures[source],
			lastFail.Add(cb.openDuration).Format("15:04:05"),
		)
	default:
		return true, nil
	}
}

// recordSuccess resets failure tracking for the source
func (cb *circuitBreaker) recordSuccess(source Source) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state[source]
	delete(cb.failures, source)
	delete(cb.lastFailure, source)
	cb.state[source] = stateClosed

	if oldState != stateClosed {
		log.Printf("[SOURCE-CIRCUIT] Circuit for source '%s' is now CLOSED (recovered)", source)
	}
}

// recordFailure records a transport failure and opens the circuit at the threshold
func (cb *circuitBreaker) recordFailure(source Source, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures[source]++
	cb.lastFailure[source] = time.Now()
	failCount := cb.failures[source]
	if _, seen := cb.state[source]; !seen {
		cb.state[source] = stateClosed
	}

	// A failed half-open probe reopens immediately
	if failCount >= cb.failureThreshold || cb.state[source] == stateHalfOpen {
		if cb.state[source] != stateOpen {
			log.Printf(
				"[SOURCE-CIRCUIT] Opening circuit for source '%s' after %d consecutive failures. Last error: %v",
				source,
				failCount,
				err,
			)
		}
		cb.state[source] = stateOpen
		return
	}

	log.Printf("[SOURCE-CIRCUIT] Failure %d/%d for source '%s': %v", failCount, cb.failureThreshold, source, err)
}

// stats returns the current breaker state of every source seen so far
func (cb *circuitBreaker) stats() map[Source]SourceHealth {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := make(map[Source]SourceHealth, len(cb.state))
	for source, state := range cb.state {
		stats[source] = SourceHealth{
			State:       state.String(),
			Failures:    cb.failures[source],
			LastFailure: cb.lastFailure[source],
		}
	}
	return stats
}
