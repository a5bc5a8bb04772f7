package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = NewTransientError(errors.New("flaky"), 503)

func newTestBreaker(threshold int) (*CircuitBreaker, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("box", CircuitBreakerConfig{FailureThreshold: threshold, ResetTimeout: time.Minute})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func fail(_ context.Context) error { return errFlaky }
func succeed(_ context.Context) error { return nil }

func TestCircuitBreaker_PassesThroughWhenClosed(t *testing.T) {
	cb, _ := newTestBreaker(3)
	calls := 0
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("call should be rejected")
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_NonTransientDoesNotTrip(t *testing.T) {
	cb, _ := newTestBreaker(2)
	notFound := errors.New("not found")
	for i := 0; i < 5; i++ {
		err := cb.Execute(context.Background(), func(_ context.Context) error { return notFound })
		assert.ErrorIs(t, err, notFound)
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(3)
	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	require.NoError(t, cb.Execute(context.Background(), succeed))
	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	cb, now := newTestBreaker(1)
	_ = cb.Execute(context.Background(), fail)
	require.Equal(t, CircuitOpen, cb.State())

	*now = now.Add(2 * time.Minute)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), succeed))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(1)
	_ = cb.Execute(context.Background(), fail)
	*now = now.Add(2 * time.Minute)

	err := cb.Execute(context.Background(), fail)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1)
	_ = cb.Execute(context.Background(), fail)
	require.Equal(t, CircuitOpen, cb.State())
	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestExecuteVal(t *testing.T) {
	cb, _ := newTestBreaker(3)
	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}

func TestServiceBreakers(t *testing.T) {
	sb := NewServiceBreakers(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})

	var wg sync.WaitGroup
	got := make([]*CircuitBreaker, 10)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = sb.Get("box.ai")
		}(i)
	}
	wg.Wait()
	for _, cb := range got {
		assert.Same(t, got[0], cb)
	}

	_ = sb.Get("box.ai").Execute(context.Background(), fail)
	_ = sb.Get("anthropic")
	assert.Equal(t, map[string]CircuitState{"box.ai": CircuitOpen, "anthropic": CircuitClosed}, sb.States())
}
