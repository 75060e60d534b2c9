package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/baechuer/silverback/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)

	ForgotPassword(w http.ResponseWriter, r *http.Request)
	ValidateResetToken(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
	ConfirmRegistration(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)
}

type UsersHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)

	Me(w http.ResponseWriter, r *http.Request)
	UpdateMe(w http.ResponseWriter, r *http.Request)
	Roles(w http.ResponseWriter, r *http.Request)
}

type CodesHandler interface {
	ListCodeTypes(w http.ResponseWriter, r *http.Request)
	CreateCodeType(w http.ResponseWriter, r *http.Request)
	ListCodes(w http.ResponseWriter, r *http.Request)
	CreateCode(w http.ResponseWriter, r *http.Request)
	Deprecate(w http.ResponseWriter, r *http.Request)
	Undeprecate(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler
	Users  UsersHandler
	Codes  CodesHandler

	// StatusMW authenticates and rejects blocked/unconfirmed users.
	StatusMW func(http.Handler) http.Handler
	// AdminMW is StatusMW plus a minimum role of ADMIN.
	AdminMW func(http.Handler) http.Handler
	// LoginMW guards POST /auth/login against brute force.
	LoginMW func(http.Handler) http.Handler
	// ForgotPasswordMW throttles reset emails.
	ForgotPasswordMW func(http.Handler) http.Handler

	// Optional.
	Tracing      func(http.Handler) http.Handler
	Metrics      http.Handler
	CORSOrigins  []string
	APIRateLimit int // requests per minute per IP, 0 disables
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only set it behind a proxy that overwrites those headers.
	TrustProxy bool
}

func New(deps Deps) (http.Handler, error) {
	switch {
	case deps.Health == nil:
		return nil, fmt.Errorf("nil Health handler")
	case deps.Auth == nil:
		return nil, fmt.Errorf("nil Auth handler")
	case deps.Users == nil:
		return nil, fmt.Errorf("nil Users handler")
	case deps.Codes == nil:
		return nil, fmt.Errorf("nil Codes handler")
	case deps.StatusMW == nil:
		return nil, fmt.Errorf("nil Status middleware")
	case deps.AdminMW == nil:
		return nil, fmt.Errorf("nil Admin middleware")
	case deps.LoginMW == nil:
		return nil, fmt.Errorf("nil Login middleware")
	case deps.ForgotPasswordMW == nil:
		return nil, fmt.Errorf("nil ForgotPassword middleware")
	}

	r := chi.NewRouter()
	if deps.Tracing != nil {
		r.Use(deps.Tracing)
	}
	r.Use(middleware.RequestID)
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		if deps.APIRateLimit > 0 {
			r.Use(httprate.LimitByIP(deps.APIRateLimit, time.Minute))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.Auth.Register)
			r.Post("/register/confirm", deps.Auth.ConfirmRegistration)
			r.With(deps.LoginMW).Post("/login", deps.Auth.Login)
			r.Post("/refresh", deps.Auth.Refresh)
			r.With(deps.StatusMW).Post("/logout", deps.Auth.Logout)

			r.With(deps.ForgotPasswordMW).Post("/forgot-password", deps.Auth.ForgotPassword)
			r.Get("/reset-password/validate", deps.Auth.ValidateResetToken) // ?token=...
			r.Post("/reset-password", deps.Auth.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.StatusMW)
			r.Get("/me", deps.Users.Me)
			r.Patch("/me", deps.Users.UpdateMe)
			r.Put("/me/password", deps.Auth.ChangePassword)
			r.Get("/roles", deps.Users.Roles)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(deps.AdminMW)
			r.Get("/", deps.Users.List)
			r.Post("/", deps.Users.Create)
			r.Get("/{id}", deps.Users.Get)
			r.Patch("/{id}", deps.Users.Update)
			r.Delete("/{id}", deps.Users.Delete)
		})

		r.Route("/code-types", func(r chi.Router) {
			r.Use(deps.AdminMW)
			r.Get("/", deps.Codes.ListCodeTypes)
			r.Post("/", deps.Codes.CreateCodeType)
		})

		r.Route("/codes/{codeType}", func(r chi.Router) {
			r.With(deps.StatusMW).Get("/", deps.Codes.ListCodes)
			r.With(deps.AdminMW).Post("/", deps.Codes.CreateCode)
			r.With(deps.AdminMW).Post("/{codeId}/deprecate", deps.Codes.Deprecate)
			r.With(deps.AdminMW).Post("/{codeId}/undeprecate", deps.Codes.Undeprecate)
		})
	})

	return r, nil
}
