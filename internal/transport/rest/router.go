package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/audit"
	"github.com/frahmantamala/finsolve-gateway/internal/auth"
	"github.com/frahmantamala/finsolve-gateway/internal/chat"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/dashboard"
	"github.com/frahmantamala/finsolve-gateway/internal/document"
	"github.com/frahmantamala/finsolve-gateway/internal/guard"
	"github.com/frahmantamala/finsolve-gateway/internal/observability"
	"github.com/frahmantamala/finsolve-gateway/internal/registry"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport/middleware"
	"github.com/frahmantamala/finsolve-gateway/internal/transport/swagger"
	"github.com/frahmantamala/finsolve-gateway/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
)

const loginRateWindow = time.Minute

// Handlers groups the HTTP handlers mounted by RegisterAllRoutes. Nil
// handlers leave their routes unmounted.
type Handlers struct {
	Health    *HealthHandler
	Auth      *auth.Handler
	Registry  *registry.Handler
	Documents *document.Handler
	Users     *user.Handler
	Chat      *chat.Handler
	Audit     *audit.Handler
	Dashboard *dashboard.Handler
}

type RouterConfig struct {
	Sessions       session.Store
	Guard          *guard.Guard
	Metrics        *observability.Metrics
	MetricsPath    string
	Security       middleware.SecurityOptions
	OpenAPISpec    []byte
	OpenAPI        func(http.Handler) http.Handler
	LoginRateLimit int
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, cfg RouterConfig, h Handlers) {
	executiveOnly := cfg.Guard.RequireRole(access.RoleCLevel)
	authenticated := cfg.Guard.RequireAuthenticated()

	// Apply global middleware
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID(cfg.Logger))
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(cfg.Metrics.Middleware)
	router.Use(middleware.SecureHeaders(cfg.Security))
	router.Use(session.Middleware(cfg.Sessions, cfg.Logger))

	if cfg.MetricsPath != "" {
		router.Handle(cfg.MetricsPath, cfg.Metrics.Handler())
	}

	// Serve OpenAPI spec at root (outside API prefix)
	if len(cfg.OpenAPISpec) > 0 {
		router.Get(swagger.SpecPath, swagger.SpecHandler(cfg.OpenAPISpec))
		router.Handle("/swagger/*", swagger.Handler())
	}

	// Page routes: redirects instead of error bodies
	if h.Dashboard != nil {
		router.Route(guard.LandingPath, func(r chi.Router) {
			r.Use(cfg.Guard.Navigation)
			r.Get("/", h.Dashboard.Home)
			r.Get("/roles", h.Dashboard.Roles)
			r.Get("/users", h.Dashboard.Users)
			r.Get("/documents", h.Dashboard.Documents)
			r.Get("/upload", h.Dashboard.Upload)
		})
	}

	// Mount API under /api/v1 to match the OpenAPI paths
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SameOrigin(cfg.Security.Origins))
		if cfg.OpenAPI != nil {
			r.Use(cfg.OpenAPI)
		}

		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth != nil {
			r.Route("/auth", func(ar chi.Router) {
				ar.With(loginLimiter(cfg.LoginRateLimit)).Post("/login", h.Auth.Login)
				ar.Post("/logout", h.Auth.Logout)
				ar.Get("/session", h.Auth.CurrentSession)
			})
		}

		r.Group(func(pr chi.Router) {
			pr.Use(authenticated)

			if h.Registry != nil {
				pr.Get("/roles", h.Registry.GetRoles)
				pr.With(executiveOnly).Post("/roles", h.Registry.CreateRole)
				pr.With(executiveOnly).Put("/roles/{role}", h.Registry.UpdateRole)
			}

			if h.Documents != nil {
				pr.Get("/documents", h.Documents.GetDocuments)
				pr.With(executiveOnly).Post("/documents", h.Documents.UploadDocument)
			}

			if h.Users != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Use(executiveOnly)
					ur.Get("/", h.Users.GetUsers)
					ur.Post("/", h.Users.CreateUser)
					ur.Put("/{id}", h.Users.UpdateUser)
				})
			}

			if h.Chat != nil {
				pr.Post("/chat", h.Chat.Ask)
				pr.Get("/chat/transcript", h.Chat.GetTranscript)
				pr.Get("/models", h.Chat.GetModels)
			}

			if h.Audit != nil {
				pr.Route("/audit", func(ar chi.Router) {
					ar.Use(executiveOnly)
					ar.Get("/", h.Audit.GetEvents)
					ar.Get("/summary", h.Audit.GetSummary)
				})
			}
		})
	})
}

// loginLimiter throttles login attempts per client address.
func loginLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, loginRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			appErr := &internal.AppError{
				Type:       internal.ErrorTypeValidation,
				Code:       internal.ErrCodeRateLimited,
				Message:    "Too many login attempts, please try again later",
				StatusCode: http.StatusTooManyRequests,
			}
			status, body := appErr.ToHTTPResponse()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		}),
	)
}
