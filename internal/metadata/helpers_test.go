package metadata

import (
	"time"

	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/pkg/box"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func apiErr(status int) error {
	return &box.APIError{StatusCode: status, Message: "test"}
}
