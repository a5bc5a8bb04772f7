package resilience

import (
	"time"
)

// Error classes recorded on dead-letter entries.
const (
	ErrorTransient = "transient"
	ErrorPermanent = "permanent"
)

// DLQEntry is a file whose reconciliation failed and may be retried.
type DLQEntry struct {
	ID           string    `json:"id"`
	FileID       string    `json:"file_id"`
	FileName     string    `json:"file_name,omitempty"`
	TemplateKey  string    `json:"template_key"`
	Stage        string    `json:"stage,omitempty"` // suggest, apply
	Error        string    `json:"error"`
	ErrorType    string    `json:"error_type"`
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	NextRetryAt  time.Time `json:"next_retry_at"`
	CreatedAt    time.Time `json:"created_at"`
	LastFailedAt time.Time `json:"last_failed_at"`
}

// DLQFilter narrows a dead-letter query.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// CanRetry reports whether the entry has retries left. Permanent failures
// are never retried automatically.
func (e *DLQEntry) CanRetry() bool {
	return e.ErrorType != ErrorPermanent && e.RetryCount < e.MaxRetries
}

// NextRetry returns when the entry should next be attempted, doubling the
// delay from base for each retry already spent and capping at maxDelay.
func (e *DLQEntry) NextRetry(now time.Time, base, maxDelay time.Duration) time.Time {
	d := base
	for i := 0; i < e.RetryCount && d < maxDelay; i++ {
		d *= 2
	}
	if d > maxDelay {
		d = maxDelay
	}
	return now.Add(d)
}

// ClassifyError labels err as transient or permanent.
func ClassifyError(err error) string {
	if IsTransient(err) {
		return ErrorTransient
	}
	return ErrorPermanent
}
