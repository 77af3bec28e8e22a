// Package httptransport assembles the firmgate route tree and its
// middleware chain. Handlers live with their modules.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"firmgate/internal/access"
	"firmgate/pkg/platform/middleware/auth"
	"firmgate/pkg/platform/middleware/metadata"
	"firmgate/pkg/platform/middleware/ratelimit"
	request "firmgate/pkg/platform/middleware/request"
	"firmgate/pkg/platform/middleware/requesttime"
	"firmgate/pkg/validation"
)

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Routes carries everything NewRouter mounts. Webhook may be nil when no
// signing secret is configured.
type Routes struct {
	Health  Registrar
	Signup  Registrar
	Webhook Registrar

	Firms  Registrar
	Tokens Registrar
	Admin  Registrar

	Access     *access.Handler
	Classifier *access.Classifier
}

type Config struct {
	Logger      *slog.Logger
	Sessions    auth.JWTValidator
	Metadata    *metadata.Middleware
	RateLimiter *ratelimit.Limiter
	Latency     *request.Metrics
}

func NewRouter(cfg Config, routes Routes) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(cfg.Metadata.Handler)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(cfg.Latency))
	r.Use(request.BodyLimit(validation.MaxBodySize))

	routes.Health.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	if routes.Webhook != nil {
		routes.Webhook.Register(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware(logger))
		}
		routes.Signup.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Use(auth.Authenticate(cfg.Sessions, logger))
		r.Use(auth.RequireAuth(logger))

		routes.Access.RegisterAuth(r)

		r.Group(func(r chi.Router) {
			r.Use(routes.Classifier.RequireRole(access.RoleAdmin))
			routes.Admin.Register(r)
			routes.Firms.Register(r)
			routes.Tokens.Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(routes.Classifier.RequireRole(access.RoleFirm))
			routes.Access.RegisterFirm(r)
		})
	})

	return r
}
