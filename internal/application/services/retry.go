package services

import (
	"context"
	"log"
	"time"

	"github.com/nexora/backend/internal/infrastructure/metrics"
	"github.com/nexora/backend/pkg/constants"
	appErrors "github.com/nexora/backend/pkg/errors"
)

// RetryPolicy bounds retries of TransientError failures. Attempt n (from 0)
// waits BaseDelay * 2^n before the next try.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: constants.DefaultRetryAttempts,
		BaseDelay:   constants.DefaultRetryBaseDelayMs * time.Millisecond,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<uint(attempt))
}

// withRetry runs fn until it succeeds, fails with a non-transient error, or
// the attempts run out. The last error is returned unchanged.
func withRetry(ctx context.Context, p RetryPolicy, m *metrics.Metrics, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn()
		if err == nil || !appErrors.IsTransient(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		m.Retry(op)
		log.Printf("⚠️  %s failed (attempt %d/%d), retrying: %v", op, attempt+1, attempts, err)

		select {
		case <-time.After(p.backoff(attempt)):
		case <-ctx.Done():
			return err
		}
	}
	return err
}
