// Package ratelimit defines the brute-force and fixed-window limiter ports
// and the backoff schedule shared by their redis and in-memory stores.
package ratelimit

import (
	"context"
	"time"
)

// Policy configures a brute-force limiter.
//
// The first FreeRetries attempts for a key are always allowed. Every attempt
// after that must wait MinWait since the previous recorded attempt, doubling
// for each further attempt up to MaxWait. A key is forgotten Lifetime after
// its last recorded attempt, or immediately on Reset.
type Policy struct {
	FreeRetries int
	MinWait     time.Duration
	MaxWait     time.Duration
	Lifetime    time.Duration
}

// WaitFor returns the delay required before attempt number n (1-based).
func (p Policy) WaitFor(n int) time.Duration {
	over := n - p.FreeRetries
	if over <= 0 {
		return 0
	}
	ceiling := p.Ceiling()
	w := p.MinWait
	for i := 1; i < over && w < ceiling; i++ {
		w *= 2
	}
	if w > ceiling {
		return ceiling
	}
	return w
}

// Ceiling is MaxWait, raised to MinWait when misconfigured below it.
func (p Policy) Ceiling() time.Duration {
	if p.MaxWait < p.MinWait {
		return p.MinWait
	}
	return p.MaxWait
}

// TTL is how long a store keeps a key after a recorded attempt.
func (p Policy) TTL() time.Duration {
	if p.Lifetime > 0 {
		return p.Lifetime
	}
	if p.MaxWait > 0 {
		return p.MaxWait
	}
	return 24 * time.Hour
}

// Decision is the outcome of one attempt.
type Decision struct {
	Allowed bool
	// Count is the number of recorded attempts, including this one when allowed.
	Count int
	// NextRetryAt is set when denied.
	NextRetryAt time.Time
}

// RetryAfter is the remaining wait relative to now, never negative.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || d.NextRetryAt.IsZero() {
		return 0
	}
	if w := d.NextRetryAt.Sub(now); w > 0 {
		return w
	}
	return 0
}

// Limiter is a brute-force store. Implementations must make Attempt atomic
// per key.
type Limiter interface {
	Attempt(ctx context.Context, key string) (Decision, error)
	Reset(ctx context.Context, key string) error
}

// WindowLimiter counts hits in fixed windows.
type WindowLimiter interface {
	AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Evaluate applies p to a key's stored state. count is the number of
// recorded attempts and last the time of the latest one.
func Evaluate(p Policy, count int, last, now time.Time) Decision {
	n := count + 1
	if wait := p.WaitFor(n); wait > 0 && !last.IsZero() {
		if next := last.Add(wait); now.Before(next) {
			return Decision{Allowed: false, Count: count, NextRetryAt: next}
		}
	}
	return Decision{Allowed: true, Count: n}
}
