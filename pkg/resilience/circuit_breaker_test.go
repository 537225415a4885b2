package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(settings BreakerSettings) (*BreakerRegistry, *time.Time) {
	r := NewBreakerRegistry(settings)
	now := time.Now()
	r.now = func() time.Time { return now }
	return r, &now
}

func TestBreakerRegistry_UnknownKeyPermitted(t *testing.T) {
	r := NewBreakerRegistry(DefaultBreakerSettings())

	assert.True(t, r.Allow("never-seen"))
	assert.Equal(t, StateClosed, r.State("never-seen"))
}

func TestBreakerRegistry_TripsAfterFailureThreshold(t *testing.T) {
	r, _ := newTestRegistry(BreakerSettings{FailureThreshold: 5})

	for i := 0; i < 4; i++ {
		r.RecordFailure("tiktok_api")
		assert.Equal(t, StateClosed, r.State("tiktok_api"))
		assert.True(t, r.Allow("tiktok_api"))
	}

	r.RecordFailure("tiktok_api")
	assert.Equal(t, StateOpen, r.State("tiktok_api"))
	assert.False(t, r.Allow("tiktok_api"))
}

func TestBreakerRegistry_SuccessResetsFailureCount(t *testing.T) {
	r, _ := newTestRegistry(BreakerSettings{FailureThreshold: 3})

	r.RecordFailure("instagram_api")
	r.RecordFailure("instagram_api")
	r.RecordSuccess("instagram_api")

	// The count restarted, so two more failures are not enough.
	r.RecordFailure("instagram_api")
	r.RecordFailure("instagram_api")
	assert.Equal(t, StateClosed, r.State("instagram_api"))

	r.RecordFailure("instagram_api")
	assert.Equal(t, StateOpen, r.State("instagram_api"))
}

func TestBreakerRegistry_OpenToHalfOpenAfterResetTimeout(t *testing.T) {
	r, now := newTestRegistry(BreakerSettings{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		ResetTimeout:     time.Minute,
	})

	r.RecordFailure("k")
	r.RecordFailure("k")
	require.Equal(t, StateOpen, r.State("k"))
	assert.False(t, r.Allow("k"))

	// The permission check after the timeout performs the transition and
	// lets the probe through.
	*now = now.Add(time.Minute)
	assert.True(t, r.Allow("k"))
	assert.Equal(t, StateHalfOpen, r.State("k"))
}

func TestBreakerRegistry_HalfOpenFailureReopens(t *testing.T) {
	r, now := newTestRegistry(BreakerSettings{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		ResetTimeout:     time.Minute,
	})

	r.RecordFailure("k")
	r.RecordFailure("k")
	*now = now.Add(time.Minute)
	require.True(t, r.Allow("k"))
	require.Equal(t, StateHalfOpen, r.State("k"))

	// A single probe failure goes straight back to Open.
	r.RecordFailure("k")
	assert.Equal(t, StateOpen, r.State("k"))
	assert.False(t, r.Allow("k"))
}

func TestBreakerRegistry_HalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	r, now := newTestRegistry(BreakerSettings{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		ResetTimeout:     time.Minute,
	})

	r.RecordFailure("k")
	r.RecordFailure("k")
	*now = now.Add(time.Minute)
	require.True(t, r.Allow("k"))

	r.RecordSuccess("k")
	assert.Equal(t, StateHalfOpen, r.State("k"))
	r.RecordSuccess("k")
	assert.Equal(t, StateClosed, r.State("k"))
	assert.True(t, r.Allow("k"))
}

func TestBreakerRegistry_ReopenRestartsResetTimeout(t *testing.T) {
	r, now := newTestRegistry(BreakerSettings{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		ResetTimeout:     time.Minute,
	})

	r.RecordFailure("k")
	*now = now.Add(time.Minute)
	require.True(t, r.Allow("k"))
	r.RecordFailure("k")
	require.Equal(t, StateOpen, r.State("k"))

	// The clock restarted at the reopen, so half a timeout is not enough.
	*now = now.Add(30 * time.Second)
	assert.False(t, r.Allow("k"))

	*now = now.Add(30 * time.Second)
	assert.True(t, r.Allow("k"))
}

func TestBreakerRegistry_Configure(t *testing.T) {
	r, _ := newTestRegistry(DefaultBreakerSettings())

	r.Configure("k", BreakerSettings{FailureThreshold: 1})
	r.RecordFailure("k")
	assert.Equal(t, StateOpen, r.State("k"))

	// Reconfiguring resets state.
	r.Configure("k", BreakerSettings{FailureThreshold: 2})
	assert.Equal(t, StateClosed, r.State("k"))
}

func TestBreakerRegistry_KeysAreIndependent(t *testing.T) {
	r, _ := newTestRegistry(BreakerSettings{FailureThreshold: 1})

	r.RecordFailure("a")
	assert.Equal(t, StateOpen, r.State("a"))
	assert.Equal(t, StateClosed, r.State("b"))
	assert.True(t, r.Allow("b"))
}

func TestBreakerRegistry_OnStateChange(t *testing.T) {
	r, now := newTestRegistry(BreakerSettings{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		ResetTimeout:     time.Minute,
	})

	type change struct{ from, to CircuitState }
	var changes []change
	r.OnStateChange = func(key string, from, to CircuitState) {
		changes = append(changes, change{from, to})
	}

	r.RecordFailure("k")
	*now = now.Add(time.Minute)
	r.Allow("k")
	r.RecordSuccess("k")

	require.Len(t, changes, 3)
	assert.Equal(t, change{StateClosed, StateOpen}, changes[0])
	assert.Equal(t, change{StateOpen, StateHalfOpen}, changes[1])
	assert.Equal(t, change{StateHalfOpen, StateClosed}, changes[2])
}

func TestBreakerRegistry_Snapshot(t *testing.T) {
	r, _ := newTestRegistry(BreakerSettings{FailureThreshold: 5})

	r.RecordFailure("tiktok_api")
	r.RecordFailure("tiktok_api")

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "tiktok_api", snap[0].Key)
	assert.Equal(t, StateClosed, snap[0].State)
	assert.Equal(t, 2, snap[0].FailureCount)
}
