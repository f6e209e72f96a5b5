package domain

import (
	"context"
	"time"
)

// RateLimiter limits how often a keyed action may happen.
type RateLimiter interface {
	// Allow reports whether another request for key is permitted under a
	// limit of `limit` requests per `window`. Allowed requests are counted.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
