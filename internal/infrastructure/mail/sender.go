// Package mail renders and delivers the transactional emails (password
// reset, invitation). Delivery goes through a Sender: SMTP, a log-only
// sender for development, or the rabbitmq publisher.
package mail

import (
	"context"

	"github.com/rs/zerolog"
)

const (
	KindPasswordReset = "password_reset"
	KindInvitation    = "invitation"
)

type Message struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender only logs. Links are included so local flows can be completed
// from the console.
type LogSender struct {
	lg zerolog.Logger
}

func NewLogSender(lg zerolog.Logger) *LogSender {
	return &LogSender{lg: lg.With().Str("component", "log_sender").Logger()}
}

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.lg.Info().
		Str("kind", m.Kind).
		Str("to", m.To).
		Str("subject", m.Subject).
		Str("text", m.Text).
		Msg("mail (log transport)")
	return nil
}
