package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/baechuer/silverback/internal/logger"
	"github.com/baechuer/silverback/internal/ratelimit"
)

const maxLoginBody = 64 << 10

// BruteForce guards credential endpoints with two limiters:
//
//   - global, keyed by client IP, caps attempts from one address;
//   - identity, keyed by client IP and the submitted email, backs off after
//     a few failures and is reset by a successful (2xx) response.
//
// It runs before authentication. Store failures fail open.
func BruteForce(global, identity ratelimit.Limiter, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)
			now := time.Now()

			if global != nil {
				dec, err := global.Attempt(ctx, "global:"+ip)
				switch {
				case err != nil:
					logger.WithCtx(ctx).Warn().Err(err).Msg("global brute limiter unavailable, allowing")
				case !dec.Allowed:
					RateLimitDeniedTotal.WithLabelValues("global").Inc()
					logger.WithCtx(ctx).Warn().Str("ip", ip).Time("next_retry_at", dec.NextRetryAt).Msg("brute force: global limit")
					writeErr(w, r, tooManyRequests("global", dec.RetryAfter(now)))
					return
				}
			}

			if identity == nil {
				next.ServeHTTP(w, r)
				return
			}

			email := peekEmail(r)
			key := "identity:" + ip + ":" + email
			dec, err := identity.Attempt(ctx, key)
			if err != nil {
				logger.WithCtx(ctx).Warn().Err(err).Msg("identity brute limiter unavailable, allowing")
				next.ServeHTTP(w, r)
				return
			}
			if !dec.Allowed {
				RateLimitDeniedTotal.WithLabelValues("identity").Inc()
				logger.WithCtx(ctx).Warn().Str("ip", ip).Str("email", email).Int("attempts", dec.Count).
					Time("next_retry_at", dec.NextRetryAt).Msg("brute force: identity limit")
				writeErr(w, r, tooManyRequests("identity", dec.RetryAfter(now)))
				return
			}

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			if sw.status >= 200 && sw.status < 300 {
				if err := identity.Reset(ctx, key); err != nil {
					logger.WithCtx(ctx).Warn().Err(err).Msg("identity brute limiter reset failed")
				}
			}
		})
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

// peekEmail reads the "email" field from the first maxLoginBody bytes of a
// JSON body. The handler still sees the full, unconsumed body.
func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBody))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), r.Body), Closer: r.Body}
	if err != nil {
		return ""
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}
