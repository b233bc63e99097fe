package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDownstream = errors.New("downstream failed")

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		HalfOpenMaxRequests: 1,
	})
	cb.now = func() time.Time { return *clock }
	cb.lastStateTime = *clock
	return cb
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)

	fail := func() error { return errDownstream }
	require.ErrorIs(t, cb.Execute(fail), errDownstream)
	assert.Equal(t, StateClosed, cb.GetState())
	require.ErrorIs(t, cb.Execute(fail), errDownstream)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)
}

func TestHalfOpenRecovers(t *testing.T) {
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)

	fail := func() error { return errDownstream }
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	require.Equal(t, StateOpen, cb.GetState())

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)

	fail := func() error { return errDownstream }
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	clock = clock.Add(2 * time.Minute)

	require.ErrorIs(t, cb.Execute(fail), errDownstream)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)

	_ = cb.Execute(func() error { return errDownstream })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errDownstream })
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCanceledCallsDoNotTrip(t *testing.T) {
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		err := cb.ExecuteContext(ctx, func(ctx context.Context) error { return ctx.Err() })
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
}
