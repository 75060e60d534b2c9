package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/silverback/internal/application/auth"
	"github.com/baechuer/silverback/internal/application/codes"
	"github.com/baechuer/silverback/internal/application/users"
	"github.com/baechuer/silverback/internal/audit"
	"github.com/baechuer/silverback/internal/config"
	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/infrastructure/db/postgres"
	"github.com/baechuer/silverback/internal/infrastructure/mail"
	"github.com/baechuer/silverback/internal/infrastructure/memory"
	"github.com/baechuer/silverback/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/silverback/internal/infrastructure/redis"
	"github.com/baechuer/silverback/internal/infrastructure/security"
	"github.com/baechuer/silverback/internal/logger"
	"github.com/baechuer/silverback/internal/ratelimit"
	"github.com/baechuer/silverback/internal/tracing"
	http_handlers "github.com/baechuer/silverback/internal/transport/http/handlers"
	"github.com/baechuer/silverback/internal/transport/http/middleware"
	"github.com/baechuer/silverback/internal/transport/http/response"
	"github.com/baechuer/silverback/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (*sql.DB, error)

	// NewRedis may be nil; limiters then stay in memory.
	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(rabbitURL string) (MailPublisher, error)

	InitTracing func(ctx context.Context, cfg tracing.Config) (*tracing.Provider, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

// MailPublisher is a mail.Sender that owns a broker connection.
type MailPublisher interface {
	mail.Sender
	Close() error
}

type limiters struct {
	global   ratelimit.Limiter
	identity ratelimit.Limiter
	window   ratelimit.WindowLimiter
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	ctx := context.Background()

	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) tracing
	var tp *tracing.Provider
	if deps.InitTracing != nil {
		tp, err = deps.InitTracing(ctx, tracing.Config{
			ServiceName:    cfg.ServiceName,
			ServiceVersion: cfg.Version,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			Insecure:       cfg.IsDev(),
		})
		if err != nil {
			return fail(fmt.Errorf("init tracing: %w", err))
		}
		cleanupFns = append(cleanupFns, func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(sctx)
		})
	}

	// 2) db
	db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
	if err != nil {
		return fail(err)
	}
	cleanupFns = append(cleanupFns, func() { _ = db.Close() })

	if cfg.IsDev() {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return fail(err)
		}
		if err := postgres.SeedCodes(ctx, db); err != nil {
			return fail(err)
		}
	}

	userRepo := postgres.NewUserRepo(db)
	codeRepo := postgres.NewCodeRepo(db)

	// 3) redis (best-effort)
	var redisCli *redis.Client
	if deps.NewRedis != nil && cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := c.Ping(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; rate limiting in memory")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}
	lim := newLimiters(cfg, redisCli)

	// 4) mail
	sender, err := newMailSender(cfg, deps)
	if err != nil {
		return fail(err)
	}
	if c, ok := sender.(MailPublisher); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}
	dispatcher := mail.NewDispatcher(sender, mail.DispatcherConfig{
		PasswordResetBaseURL:       cfg.PasswordResetBaseURL,
		RegistrationConfirmBaseURL: cfg.RegistrationConfirmBaseURL,
	})
	// runs before the sender is closed
	cleanupFns = append(cleanupFns, dispatcher.Wait)

	// 5) security
	logger.Logger.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt signer")
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	tokens := security.NewRandomTokens(32)
	roles := domain.DefaultRoles()

	// seed (dev only)
	if cfg.IsDev() {
		postgres.SeedUsers(ctx, userRepo, hasher)
	}

	// 6) services
	auditLog := audit.New(logger.Logger)
	authSvc := auth.NewService(userRepo, hasher, signer, tokens, dispatcher, auth.Config{
		AccessTTL: cfg.AccessTokenTTL,
	}).WithAudit(auditLog.Record)
	usersSvc := users.NewService(userRepo, roles, hasher, tokens, dispatcher).WithAudit(auditLog.Record)
	codesSvc := codes.NewService(codeRepo)

	// 7) handlers + middleware
	checks := []http_handlers.Check{{Name: "postgres", Ping: db.PingContext}}
	if redisCli != nil {
		checks = append(checks, http_handlers.Check{Name: "redis", Ping: redisCli.Ping})
	}

	routerDeps := router.Deps{
		Health: http_handlers.NewHealthHandler(checks...),
		Auth:   http_handlers.NewAuthHandler(authSvc),
		Users:  http_handlers.NewUsersHandler(usersSvc, authSvc, roles),
		Codes:  http_handlers.NewCodesHandler(codesSvc),

		StatusMW: middleware.UserStatus(signer, userRepo, response.WriteError),
		AdminMW:  middleware.Permission(signer, userRepo, roles, domain.RoleAdmin, response.WriteError),
		LoginMW:  middleware.BruteForce(lim.global, lim.identity, response.WriteError),
		ForgotPasswordMW: middleware.RateLimitFixedWindow(lim.window, middleware.FixedWindowConfig{
			RouteKey: "auth.forgot_password",
			Limit:    cfg.ForgotPasswordLimitPerWindow,
			Window:   cfg.ForgotPasswordWindow,
		}, response.WriteError),

		Metrics:      promhttp.Handler(),
		CORSOrigins:  cfg.CORSOrigins,
		APIRateLimit: cfg.APIRateLimit,
		TrustProxy:   cfg.TrustProxy,
	}
	if tp.Enabled() {
		routerDeps.Tracing = tracing.Middleware(cfg.ServiceName)
	}

	// 8) router
	mux, err := deps.NewRouter(routerDeps)
	if err != nil {
		return fail(err)
	}

	// 9) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

// newLimiters builds the login and forgot-password limiters. The global
// login limiter allows GlobalFreeRetries per IP and then blocks for the
// whole window; it is never reset by a success.
func newLimiters(cfg *config.Config, rc *redis.Client) limiters {
	identity := ratelimit.Policy{
		FreeRetries: cfg.LoginFreeRetries,
		MinWait:     cfg.LoginMinWait,
		MaxWait:     cfg.LoginMaxWait,
		Lifetime:    cfg.LoginLifetime,
	}
	global := ratelimit.Policy{
		FreeRetries: cfg.GlobalFreeRetries,
		MinWait:     cfg.GlobalLoginWindow,
		MaxWait:     cfg.GlobalLoginWindow,
		Lifetime:    cfg.GlobalLoginWindow,
	}

	if rc != nil {
		return limiters{
			global:   redis.NewBruteLimiter(rc, "brute:login:", global),
			identity: redis.NewBruteLimiter(rc, "brute:login:", identity),
			window:   redis.NewFixedWindowLimiter(rc),
		}
	}
	return limiters{
		global:   memory.NewBruteLimiter(global),
		identity: memory.NewBruteLimiter(identity),
		window:   memory.NewFixedWindowLimiter(),
	}
}

func newMailSender(cfg *config.Config, deps Deps) (mail.Sender, error) {
	switch cfg.MailTransport {
	case "smtp":
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
			Timeout:  10 * time.Second,
			Insecure: cfg.IsDev(),
		}, logger.Logger), nil

	case "rabbitmq":
		if deps.NewPublisher == nil {
			return nil, fmt.Errorf("bootstrap: MAIL_TRANSPORT=rabbitmq without a publisher")
		}
		pub, err := deps.NewPublisher(cfg.RabbitURL)
		if err == nil {
			return pub, nil
		}
		if !cfg.IsDev() {
			return nil, err
		}
		logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; logging mail instead")
		return mail.NewLogSender(logger.Logger), nil

	default:
		return mail.NewLogSender(logger.Logger), nil
	}
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		NewRedis:   redis.New,
		NewPublisher: func(url string) (MailPublisher, error) {
			return rabbitmq.NewPublisher(url)
		},
		InitTracing: tracing.Init,
		NewRouter:   router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
