package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Sweep thresholds: once the map holds sweepMinEntries counters, windows idle
// for more than staleSeconds are dropped on the next Allow call.
const (
	sweepMinEntries = 1024
	staleSeconds    = 10
)

// window is one per-key counter bound to the second it was opened in.
type window struct {
	second int64
	count  int
}

// MemoryLimiter counts hits per key in one-second fixed windows. Counters are
// process-local, so in a multi-instance deployment each instance grants the
// full limit; the Redis limiter is the shared-state variant.
type MemoryLimiter struct {
	mu   sync.Mutex
	hits map[string]window
}

// NewMemoryLimiter constructs an empty MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{hits: make(map[string]window)}
}

// Allow records one hit against key and reports whether it fits within limit
// for the current second. A non-positive limit or empty key disables the
// check.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	second := now.Unix()
	reset := time.Unix(second+1, 0).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.hits[key]
	if w.second != second {
		w = window{second: second}
	}
	if w.count >= limit {
		l.hits[key] = w
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	w.count++
	l.hits[key] = w
	l.sweepLocked(second)

	return Result{Allowed: true, Remaining: limit - w.count, Reset: reset}, nil
}

// sweepLocked drops counters whose window closed long ago, keeping the map
// from holding one entry per client address forever. Caller holds l.mu.
func (l *MemoryLimiter) sweepLocked(second int64) {
	if len(l.hits) < sweepMinEntries {
		return
	}
	for key, w := range l.hits {
		if second-w.second > staleSeconds {
			delete(l.hits, key)
		}
	}
}
