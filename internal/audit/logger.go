// Package audit writes security-relevant business events (logins, resets,
// role changes) as structured log lines tagged audit=true.
package audit

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	pkgctx "github.com/baechuer/silverback/internal/pkg/context"
)

type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record logs one event. It matches the WithAudit hook of the application
// services. Email values are masked.
func (l *Logger) Record(ctx context.Context, action string, fields map[string]string) {
	ev := l.log.Info()
	if isFailure(fields) {
		ev = l.log.Warn()
	}

	ev = ev.Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if k == "email" {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}

	if rid := pkgctx.GetRequestID(ctx); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	ev.Msg("audit event")
}

func isFailure(fields map[string]string) bool {
	switch fields["result"] {
	case "failed", "error", "denied":
		return true
	}
	return false
}

// maskEmail keeps the first two characters and the domain.
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
