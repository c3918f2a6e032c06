package db

import (
	"context"
	"errors"
	"time"
)

// DefaultStoreTimeout bounds a single persistence call when no explicit
// timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// WithTimeout derives a bounded context for one store call. Operations are
// short-lived; a store that does not answer within the bound is treated as
// unavailable rather than slow.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// IsUnavailable reports whether the error indicates the store did not
// answer in time. Distinct from a not-found result.
func IsUnavailable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
