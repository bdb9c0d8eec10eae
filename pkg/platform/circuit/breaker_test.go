package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func newClock() *clock {
	return &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreaker_InitialState(t *testing.T) {
	b := New("test")
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "test", b.Name())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("test", WithFailureThreshold(3))

	// First two failures don't open
	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.Allow())

	// Third failure opens the circuit
	assert.True(t, b.RecordFailure())
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow())

	// Already open, no state change
	assert.False(t, b.RecordFailure())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New("test", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.RecordSuccess())

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	c := newClock()
	b := New("test", WithFailureThreshold(1), WithCooldown(time.Minute), WithClock(c.now))

	b.RecordFailure()
	assert.False(t, b.Allow())

	c.advance(59 * time.Second)
	assert.False(t, b.Allow())

	c.advance(time.Second)
	assert.True(t, b.Allow(), "one probe after the cooldown")
	assert.Equal(t, StateHalfOpen, b.State())
	assert.False(t, b.Allow(), "only one probe at a time")

	assert.True(t, b.RecordSuccess())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	c := newClock()
	b := New("test", WithFailureThreshold(3), WithCooldown(time.Minute), WithClock(c.now))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	c.advance(time.Minute)
	assert.True(t, b.Allow())

	assert.True(t, b.RecordFailure(), "a single failed probe reopens")
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("test", WithFailureThreshold(1))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_IgnoresNonPositiveOptions(t *testing.T) {
	b := New("test", WithFailureThreshold(0), WithCooldown(-time.Second))
	for range DefaultFailureThreshold - 1 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen())
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}
