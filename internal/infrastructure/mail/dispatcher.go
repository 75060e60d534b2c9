package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const defaultSendTimeout = 10 * time.Second

type DispatcherConfig struct {
	// Both URLs end in "token=" and get the raw token appended.
	PasswordResetBaseURL       string
	RegistrationConfirmBaseURL string
	SendTimeout                time.Duration
}

// Dispatcher renders transactional emails and hands them to a Sender in
// the background. The request that triggered the mail never waits for, or
// fails because of, delivery.
type Dispatcher struct {
	sender Sender
	cfg    DispatcherConfig
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return &Dispatcher{sender: sender, cfg: cfg}
}

type templateData struct {
	Name string
	Link string
}

func (d *Dispatcher) PasswordReset(ctx context.Context, u domain.User, token string) {
	link := d.cfg.PasswordResetBaseURL + token
	d.dispatch(ctx, KindPasswordReset, "password_reset.html", u, Message{
		Kind:    KindPasswordReset,
		To:      u.Email,
		Subject: "Reset your password",
		Text:    fmt.Sprintf("Reset your password by opening this link:\n\n%s\n", link),
	}, link)
}

func (d *Dispatcher) Invitation(ctx context.Context, u domain.User, token string) {
	link := d.cfg.RegistrationConfirmBaseURL + token
	d.dispatch(ctx, KindInvitation, "invitation.html", u, Message{
		Kind:    KindInvitation,
		To:      u.Email,
		Subject: "Complete your registration",
		Text:    fmt.Sprintf("An account was created for you. Choose a password here:\n\n%s\n", link),
	}, link)
}

// Wait blocks until in-flight sends finish. Used on shutdown.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) dispatch(ctx context.Context, kind, tmpl string, u domain.User, m Message, link string) {
	lg := logger.WithCtx(ctx)

	body, err := render(tmpl, templateData{Name: displayName(u), Link: link})
	if err != nil {
		lg.Error().Err(err).Str("kind", kind).Msg("mail render failed")
		dispatchTotal.WithLabelValues(kind, "render_failed").Inc()
		return
	}
	m.HTML = body

	// detach from the request; it is usually finished before the send is
	sendCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(sendCtx, d.cfg.SendTimeout)
		defer cancel()

		start := time.Now()
		err := d.sender.Send(ctx, m)
		dispatchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			dispatchTotal.WithLabelValues(kind, "failed").Inc()
			logger.WithCtx(ctx).Error().Err(err).Str("kind", kind).Str("user_id", u.ID).Msg("mail delivery failed")
			return
		}
		dispatchTotal.WithLabelValues(kind, "sent").Inc()
		logger.WithCtx(ctx).Debug().Str("kind", kind).Str("user_id", u.ID).Msg("mail sent")
	}()
}

func render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func displayName(u domain.User) string {
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Email
}
