package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(t *testing.T) (*Breaker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker("test", Settings{FailureThreshold: 3, SuccessThreshold: 2, OpenTimeout: 10 * time.Second})
	b.now = clock.now
	return b, clock
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(t)

	for i := 0; i < 2; i++ {
		require.True(t, b.Allow())
		b.RecordFailure()
	}
	assert.Equal(t, StateClosed, b.State())

	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
	assert.Equal(t, 10*time.Second, b.RetryAfter())
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(t)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenAdmitsSingleProbe(t *testing.T) {
	b, clock := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}

	clock.advance(9 * time.Second)
	assert.False(t, b.Allow())
	assert.Equal(t, time.Second, b.RetryAfter())

	clock.advance(time.Second)
	require.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	assert.False(t, b.Allow(), "second probe must wait")

	b.RecordSuccess()
	require.True(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.advance(10 * time.Second)

	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerReleaseFreesProbe(t *testing.T) {
	b, clock := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.advance(10 * time.Second)

	require.True(t, b.Allow())
	b.Release()
	assert.True(t, b.Allow())
}

func TestBreakerReportsTransitions(t *testing.T) {
	b, clock := newTestBreaker(t)

	var seen []string
	b.OnStateChange(func(from, to State) {
		seen = append(seen, from.String()+"->"+to.String())
	})

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.advance(10 * time.Second)
	b.Allow()
	b.RecordSuccess()
	b.Allow()
	b.RecordSuccess()

	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, seen)
}

func TestNewBreakerDefaults(t *testing.T) {
	b := NewBreaker("defaults", Settings{})
	assert.Equal(t, DefaultSettings, b.settings)
	assert.Equal(t, "defaults", b.Name())
	assert.Equal(t, time.Duration(0), b.RetryAfter())
}
