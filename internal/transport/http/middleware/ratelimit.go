package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/logger"
	"github.com/baechuer/silverback/internal/ratelimit"
)

// FixedWindowConfig defines the configuration for a fixed-window rate limit.
type FixedWindowConfig struct {
	RouteKey string
	Limit    int
	Window   time.Duration
}

// RateLimitFixedWindow throttles a route per user (when authenticated) or
// per client IP. Limiter failures fail open.
func RateLimitFixedWindow(limiter ratelimit.WindowLimiter, cfg FixedWindowConfig, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.RouteKey == "" {
		cfg.RouteKey = "unknown"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || cfg.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			key := fmt.Sprintf("rl:%s:%s:%d", cfg.RouteKey, userOrIP(r), windowBucket(now, cfg.Window))

			dec, err := limiter.AllowFixedWindow(r.Context(), key, cfg.Limit, cfg.Window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn().Err(err).Str("route", cfg.RouteKey).Msg("rate limiter unavailable, allowing")
				next.ServeHTTP(w, r)
				return
			}

			if !dec.Allowed {
				RateLimitDeniedTotal.WithLabelValues(cfg.RouteKey).Inc()
				writeErr(w, r, tooManyRequests(cfg.RouteKey, dec.RetryAfter(now)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tooManyRequests carries the wait in meta; the error responder turns it
// into a Retry-After header.
func tooManyRequests(scope string, retry time.Duration) error {
	e := domain.ErrTooManyRequests(scope)
	if retry > 0 {
		e.Meta["retry_after"] = strconv.Itoa(int(math.Ceil(retry.Seconds())))
	}
	return e
}

func windowBucket(now time.Time, window time.Duration) int64 {
	sec := int64(window.Seconds())
	if sec <= 0 {
		sec = 60
	}
	return now.Unix() / sec
}

// userOrIP prefers the authenticated user id; otherwise the client IP.
func userOrIP(r *http.Request) string {
	if u, ok := CurrentUser(r.Context()); ok {
		return "u:" + u.ID
	}
	return "ip:" + clientIP(r)
}

// clientIP reads RemoteAddr. Proxy headers are resolved earlier by chi's
// RealIP middleware.
func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
