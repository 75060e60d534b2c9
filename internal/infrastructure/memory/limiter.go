package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/silverback/internal/ratelimit"
)

type bruteEntry struct {
	count   int
	last    time.Time
	expires time.Time
}

// BruteLimiter keeps counters in process memory. Only correct for a single
// API instance; use the redis limiter when running more than one.
type BruteLimiter struct {
	mu     sync.Mutex
	policy ratelimit.Policy
	data   map[string]bruteEntry
	now    func() time.Time
}

func NewBruteLimiter(p ratelimit.Policy) *BruteLimiter {
	return &BruteLimiter{policy: p, data: make(map[string]bruteEntry), now: time.Now}
}

func (l *BruteLimiter) Attempt(ctx context.Context, key string) (ratelimit.Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.data[key]
	if ok && !now.Before(e.expires) {
		e, ok = bruteEntry{}, false
	}

	d := ratelimit.Evaluate(l.policy, e.count, e.last, now)
	if !d.Allowed {
		return d, nil
	}
	l.data[key] = bruteEntry{count: d.Count, last: now, expires: now.Add(l.policy.TTL())}
	l.sweep(now)
	return d, nil
}

func (l *BruteLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	delete(l.data, key)
	l.mu.Unlock()
	return nil
}

// sweep drops expired keys once the map grows; caller holds mu.
func (l *BruteLimiter) sweep(now time.Time) {
	if len(l.data) < 10_000 {
		return
	}
	for k, e := range l.data {
		if !now.Before(e.expires) {
			delete(l.data, k)
		}
	}
}

type windowEntry struct {
	count   int
	expires time.Time
}

// FixedWindowLimiter is the in-process counterpart of the redis limiter.
type FixedWindowLimiter struct {
	mu   sync.Mutex
	data map[string]windowEntry
	now  func() time.Time
}

func NewFixedWindowLimiter() *FixedWindowLimiter {
	return &FixedWindowLimiter{data: make(map[string]windowEntry), now: time.Now}
}

func (l *FixedWindowLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
	if limit <= 0 {
		return ratelimit.Decision{Allowed: true}, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.data[key]
	if e.expires.IsZero() || !now.Before(e.expires) {
		e = windowEntry{expires: now.Add(window)}
	}
	e.count++
	l.data[key] = e

	d := ratelimit.Decision{Allowed: e.count <= limit, Count: e.count}
	if !d.Allowed {
		d.NextRetryAt = e.expires
	}
	return d, nil
}
