package resilience

import (
	"sync"
	"time"

	"github.com/clipscommerce/socialscan/pkg/logging"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// StateClosed - calls are permitted.
	StateClosed CircuitState = iota
	// StateOpen - calls are refused without touching the upstream.
	StateOpen
	// StateHalfOpen - a probe call is permitted to test recovery.
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerSettings holds per-key circuit breaker configuration.
type BreakerSettings struct {
	// FailureThreshold is the number of failures while Closed that trips
	// the breaker to Open.
	FailureThreshold int
	// SuccessThreshold is the number of successes while HalfOpen required
	// to return to Closed.
	SuccessThreshold int
	// ResetTimeout is how long the breaker stays Open before the next
	// permission check moves it to HalfOpen.
	ResetTimeout time.Duration
}

// DefaultBreakerSettings returns the default per-key settings.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		ResetTimeout:     60 * time.Second,
	}
}

// BreakerSnapshot is a copy of one breaker's state for observers.
type BreakerSnapshot struct {
	Key             string       `json:"key"`
	State           CircuitState `json:"state"`
	FailureCount    int          `json:"failure_count"`
	SuccessCount    int          `json:"success_count"`
	LastStateChange time.Time    `json:"last_state_change"`
}

type breaker struct {
	key             string
	settings        BreakerSettings
	state           CircuitState
	failureCount    int
	successCount    int
	lastStateChange time.Time
}

// BreakerRegistry tracks one circuit breaker per guarded dependency key.
// Breakers are created lazily on the first recorded outcome and persist
// for the life of the process. Keys never recorded against are treated as
// Closed, so callers do not need to pre-register their upstreams.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*breaker
	defaults BreakerSettings
	logger   *logging.Logger

	// OnStateChange is invoked (outside the lock) on every transition.
	OnStateChange func(key string, from, to CircuitState)

	// now is swappable for tests.
	now func() time.Time
}

// NewBreakerRegistry creates a registry with the given default settings.
func NewBreakerRegistry(defaults BreakerSettings) *BreakerRegistry {
	if defaults.FailureThreshold <= 0 {
		defaults.FailureThreshold = DefaultBreakerSettings().FailureThreshold
	}
	if defaults.SuccessThreshold <= 0 {
		defaults.SuccessThreshold = DefaultBreakerSettings().SuccessThreshold
	}
	if defaults.ResetTimeout <= 0 {
		defaults.ResetTimeout = DefaultBreakerSettings().ResetTimeout
	}
	return &BreakerRegistry{
		breakers: make(map[string]*breaker),
		defaults: defaults,
		logger:   logging.GetLogger(),
		now:      time.Now,
	}
}

// Configure initializes or replaces the settings for a key. Counters and
// state are reset to Closed.
func (r *BreakerRegistry) Configure(key string, settings BreakerSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = r.defaults.FailureThreshold
	}
	if settings.SuccessThreshold <= 0 {
		settings.SuccessThreshold = r.defaults.SuccessThreshold
	}
	if settings.ResetTimeout <= 0 {
		settings.ResetTimeout = r.defaults.ResetTimeout
	}
	r.breakers[key] = &breaker{
		key:             key,
		settings:        settings,
		state:           StateClosed,
		lastStateChange: r.now(),
	}
}

// Allow reports whether a call to the keyed upstream may proceed. It is
// side-effecting: an Open breaker whose reset timeout has elapsed moves to
// HalfOpen here, and that call is allowed through as the probe. Unknown
// keys are permitted.
func (r *BreakerRegistry) Allow(key string) bool {
	r.mu.Lock()
	b, ok := r.breakers[key]
	if !ok {
		r.mu.Unlock()
		return true
	}

	switch b.state {
	case StateClosed, StateHalfOpen:
		r.mu.Unlock()
		return true
	case StateOpen:
		if r.now().Sub(b.lastStateChange) >= b.settings.ResetTimeout {
			transition := r.setState(b, StateHalfOpen)
			r.mu.Unlock()
			transition()
			return true
		}
		r.mu.Unlock()
		return false
	default:
		r.mu.Unlock()
		return false
	}
}

// RecordSuccess records a successful call against the keyed breaker.
func (r *BreakerRegistry) RecordSuccess(key string) {
	r.mu.Lock()
	b := r.get(key)

	transition := func() {}
	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.settings.SuccessThreshold {
			transition = r.setState(b, StateClosed)
		}
	}
	r.mu.Unlock()
	transition()
}

// RecordFailure records a failed call against the keyed breaker. A failure
// while HalfOpen reopens the breaker immediately; the probe gets no second
// chance.
func (r *BreakerRegistry) RecordFailure(key string) {
	r.mu.Lock()
	b := r.get(key)

	transition := func() {}
	switch b.state {
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.settings.FailureThreshold {
			transition = r.setState(b, StateOpen)
		}
	case StateHalfOpen:
		transition = r.setState(b, StateOpen)
	}
	r.mu.Unlock()
	transition()
}

// State returns the current state for a key. Unknown keys report Closed.
func (r *BreakerRegistry) State(key string) CircuitState {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[key]
	if !ok {
		return StateClosed
	}
	return b.state
}

// Snapshot returns a copy of every tracked breaker's state.
func (r *BreakerRegistry) Snapshot() []BreakerSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]BreakerSnapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, BreakerSnapshot{
			Key:             b.key,
			State:           b.state,
			FailureCount:    b.failureCount,
			SuccessCount:    b.successCount,
			LastStateChange: b.lastStateChange,
		})
	}
	return out
}

// get returns the breaker for key, creating it with defaults if absent.
// Caller must hold r.mu.
func (r *BreakerRegistry) get(key string) *breaker {
	b, ok := r.breakers[key]
	if !ok {
		b = &breaker{
			key:             key,
			settings:        r.defaults,
			state:           StateClosed,
			lastStateChange: r.now(),
		}
		r.breakers[key] = b
	}
	return b
}

// setState applies a transition and returns a function that fires the
// notification hooks. Caller must hold r.mu and invoke the returned
// function after releasing it.
func (r *BreakerRegistry) setState(b *breaker, to CircuitState) func() {
	from := b.state
	if from == to {
		return func() {}
	}
	b.state = to
	b.lastStateChange = r.now()
	switch to {
	case StateOpen:
		b.successCount = 0
	case StateHalfOpen:
		b.successCount = 0
	case StateClosed:
		b.failureCount = 0
		b.successCount = 0
	}

	key := b.key
	return func() {
		r.logger.Info("Circuit breaker state changed",
			"key", key,
			"from", from.String(),
			"to", to.String(),
		)
		if r.OnStateChange != nil {
			r.OnStateChange(key, from, to)
		}
	}
}
