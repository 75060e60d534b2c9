package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	//App
	Env         string // dev / staging / prod
	ServiceName string
	Version     string
	//HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	CORSOrigins      []string
	// Requests per minute per IP across the whole API. 0 disables.
	APIRateLimit int
	// Honour X-Forwarded-For / X-Real-IP for the client IP.
	TrustProxy bool

	//Auth / Security
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
	BcryptCost     int

	// Infrastructure
	DBAddr    string
	DBDebug   bool
	RedisAddr string // empty: in-memory rate limiting
	RedisPass string
	RedisDB   int
	RabbitURL string

	// Mail
	MailTransport                string // log | smtp | rabbitmq
	MailFrom                     string
	SMTPHost                     string
	SMTPPort                     int
	SMTPUser                     string
	SMTPPass                     string
	PasswordResetBaseURL         string
	RegistrationConfirmBaseURL   string
	ForgotPasswordLimitPerWindow int
	ForgotPasswordWindow         time.Duration

	// Brute force
	LoginFreeRetries  int
	LoginMinWait      time.Duration
	LoginMaxWait      time.Duration
	LoginLifetime     time.Duration
	GlobalFreeRetries int
	GlobalLoginWindow time.Duration

	// Tracing
	OTLPEndpoint string
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured when present; real env vars take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("ENV", "dev"),
		ServiceName: getEnv("SERVICE_NAME", "silverback"),
		Version:     getEnv("SERVICE_VERSION", "dev"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		JWTIssuer:   getEnv("JWT_ISSUER", "silverback"),
		JWTAudience: getEnv("JWT_AUDIENCE", "silverback-api"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		RabbitURL:   os.Getenv("RABBIT_URL"),

		MailTransport: getEnv("MAIL_TRANSPORT", "log"),
		MailFrom:      getEnv("MAIL_FROM", "no-reply@silverback.local"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}
	cfg.DBAddr = os.Getenv("DB_ADDR")
	if cfg.DBAddr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}
	if err := validatePostgresDSN(cfg.DBAddr); err != nil {
		return nil, err
	}

	// Reset and confirmation links get the token appended.
	cfg.PasswordResetBaseURL = getEnv("PASSWORD_RESET_BASE_URL", "http://localhost:3000/reset-password?token=")
	if !strings.Contains(cfg.PasswordResetBaseURL, "token=") {
		return nil, fmt.Errorf("PASSWORD_RESET_BASE_URL must contain `token=`")
	}
	cfg.RegistrationConfirmBaseURL = getEnv("REGISTRATION_CONFIRM_BASE_URL", "http://localhost:3000/register/confirm?token=")
	if !strings.Contains(cfg.RegistrationConfirmBaseURL, "token=") {
		return nil, fmt.Errorf("REGISTRATION_CONFIRM_BASE_URL must contain `token=`")
	}

	switch cfg.MailTransport {
	case "log", "rabbitmq":
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("missing required env var: SMTP_HOST (MAIL_TRANSPORT=smtp)")
		}
	default:
		return nil, fmt.Errorf("invalid MAIL_TRANSPORT %q", cfg.MailTransport)
	}
	if cfg.MailTransport == "rabbitmq" && cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL (MAIL_TRANSPORT=rabbitmq)")
	}

	if o := os.Getenv("CORS_ORIGINS"); o != "" {
		for _, s := range strings.Split(o, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, s)
			}
		}
	}

	var err error
	durations := []struct {
		dst *time.Duration
		key string
		def time.Duration
	}{
		{&cfg.AccessTokenTTL, "ACCESS_TOKEN_TTL", 24 * time.Hour},
		{&cfg.HTTPReadTimeout, "HTTP_READ_TIMEOUT", 10 * time.Second},
		{&cfg.HTTPWriteTimeout, "HTTP_WRITE_TIMEOUT", 30 * time.Second},
		{&cfg.HTTPIdleTimeout, "HTTP_IDLE_TIMEOUT", time.Minute},
		{&cfg.ForgotPasswordWindow, "FORGOT_PASSWORD_WINDOW", 15 * time.Minute},
		{&cfg.LoginMinWait, "LOGIN_MIN_WAIT", 5 * time.Minute},
		{&cfg.LoginMaxWait, "LOGIN_MAX_WAIT", time.Hour},
		{&cfg.LoginLifetime, "LOGIN_LIFETIME", 24 * time.Hour},
		{&cfg.GlobalLoginWindow, "GLOBAL_LOGIN_WINDOW", 24 * time.Hour},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		dst *int
		key string
		def int
	}{
		{&cfg.APIRateLimit, "API_RATE_LIMIT", 300},
		{&cfg.BcryptCost, "BCRYPT_COST", 12},
		{&cfg.RedisDB, "REDIS_DB", 0},
		{&cfg.SMTPPort, "SMTP_PORT", 587},
		{&cfg.ForgotPasswordLimitPerWindow, "FORGOT_PASSWORD_LIMIT", 5},
		{&cfg.LoginFreeRetries, "LOGIN_FREE_RETRIES", 5},
		{&cfg.GlobalFreeRetries, "GLOBAL_LOGIN_FREE_RETRIES", 100},
	}
	for _, i := range ints {
		if *i.dst, err = getInt(i.key, i.def); err != nil {
			return nil, err
		}
	}

	if cfg.LoginMaxWait < cfg.LoginMinWait {
		return nil, fmt.Errorf("LOGIN_MAX_WAIT must be >= LOGIN_MIN_WAIT")
	}

	cfg.DBDebug = getEnv("DB_DEBUG", "false") == "true"
	cfg.TrustProxy = getEnv("TRUST_PROXY", "false") == "true"

	return cfg, nil
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DB_ADDR: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DB_ADDR must use postgres:// scheme")
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("DB_ADDR must name a database")
	}
	return nil
}
