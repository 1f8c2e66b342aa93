// Package ratelimit counts requests per limiting key inside a fixed
// window. Two stores exist: an in-process one for single-instance
// deployments and tests, and a Redis one for fleets that must share
// counters.
package ratelimit

import (
	"context"
	"time"
)

// Config is one limiting tier.
type Config struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of a single check. The increment has already
// happened: a denied check still consumed nothing beyond the counter
// slot, and ResetAt tells the caller when the window reopens.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter is the counter-store contract. Implementations must make the
// increment-and-compare a single atomic step; concurrent checks on the
// same key must never lose updates.
type Limiter interface {
	Check(ctx context.Context, key string, cfg Config) (Result, error)
}
