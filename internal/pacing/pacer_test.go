package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.Equal(t, Unlimited, New(0))
	assert.Equal(t, Unlimited, New(-time.Second))

	p, ok := New(300 * time.Millisecond).(*Interval)
	require.True(t, ok)
	assert.Equal(t, 300*time.Millisecond, p.Interval())
}

func TestIntervalSpacesCallers(t *testing.T) {
	p := New(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		require.NoError(t, p.Wait(ctx))
	}
	// first call is free, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestIntervalHonoursCancellation(t *testing.T) {
	p := New(time.Hour)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, p.Wait(ctx))
}

func TestUnlimited(t *testing.T) {
	start := time.Now()
	for range 100 {
		require.NoError(t, Unlimited.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Unlimited.Wait(ctx), context.Canceled)
}
