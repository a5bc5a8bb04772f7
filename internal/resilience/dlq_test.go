package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDLQEntry_CanRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorType  string
		retryCount int
		maxRetries int
		want       bool
	}{
		{"below max", ErrorTransient, 0, 3, true},
		{"at max", ErrorTransient, 3, 3, false},
		{"above max", ErrorTransient, 5, 3, false},
		{"permanent", ErrorPermanent, 0, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := DLQEntry{ErrorType: tt.errorType, RetryCount: tt.retryCount, MaxRetries: tt.maxRetries}
			assert.Equal(t, tt.want, e.CanRetry())
		})
	}
}

func TestDLQEntry_NextRetry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		retries int
		want    time.Duration
	}{
		{0, time.Minute},
		{1, 2 * time.Minute},
		{3, 8 * time.Minute},
		{10, time.Hour},
	}
	for _, tt := range tests {
		e := DLQEntry{RetryCount: tt.retries}
		assert.Equal(t, now.Add(tt.want), e.NextRetry(now, time.Minute, time.Hour), "retries=%d", tt.retries)
	}
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorTransient, ClassifyError(NewTransientError(errors.New("x"), 503)))
	assert.Equal(t, ErrorTransient, ClassifyError(statusErr(429)))
	assert.Equal(t, ErrorPermanent, ClassifyError(statusErr(400)))
	assert.Equal(t, ErrorPermanent, ClassifyError(errors.New("bad")))
}
