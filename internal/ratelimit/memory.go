package ratelimit

import (
	"context"
	"sync"
	"time"
)

// pruneThreshold bounds the record table; when exceeded, records whose
// window has elapsed are dropped during the next check.
const pruneThreshold = 10000

type record struct {
	windowStart time.Time
	window      time.Duration
	count       int
}

func (r *record) elapsed(now time.Time) bool {
	return now.Sub(r.windowStart) >= r.window
}

// MemoryLimiter is a mutex-guarded fixed-window counter table.
// Suitable for a single gateway instance; use RedisLimiter when
// counters must be shared across instances.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// NewMemoryLimiterWithClock injects a clock for deterministic tests.
func NewMemoryLimiterWithClock(now func() time.Time) *MemoryLimiter {
	l := NewMemoryLimiter()
	l.now = now
	return l
}

func (l *MemoryLimiter) Check(_ context.Context, key string, cfg Config) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) > pruneThreshold {
		l.prune(now)
	}

	rec, ok := l.records[key]
	if !ok || rec.elapsed(now) {
		// A record older than its window is reset, not incremented.
		rec = &record{windowStart: now, window: cfg.Window}
		l.records[key] = rec
	}
	rec.count++

	remaining := cfg.Limit - rec.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   rec.count <= cfg.Limit,
		Limit:     cfg.Limit,
		Remaining: remaining,
		ResetAt:   rec.windowStart.Add(rec.window),
	}, nil
}

// prune drops records whose own window elapsed. Records are judged by
// the window they were created with; keys from a longer-window tier
// must survive checks arriving for a shorter one. Caller holds the
// lock.
func (l *MemoryLimiter) prune(now time.Time) {
	for k, rec := range l.records {
		if rec.elapsed(now) {
			delete(l.records, k)
		}
	}
}
