// Package httptransport is the thin HTTP layer. Handlers delegate to the
// session and credential services without embedding business logic.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verichain/internal/platform/health"
	"verichain/pkg/platform/middleware/auth"
	"verichain/pkg/platform/middleware/metadata"
	request "verichain/pkg/platform/middleware/request"
	"verichain/pkg/platform/validation"
)

// RouterConfig collects everything NewRouter mounts. Validator may be nil,
// which leaves mutating routes unauthenticated. Metrics and MetricsHandler
// are optional.
type RouterConfig struct {
	Logger         *slog.Logger
	Session        *SessionHandler
	Credentials    *CredentialHandler
	Health         *health.Handler
	Validator      auth.JWTValidator
	Metadata       *metadata.Middleware
	Metrics        *request.Metrics
	MetricsHandler http.Handler
	RequestTimeout time.Duration
}

// DefaultRequestTimeout leaves room for a confirmation wait.
const DefaultRequestTimeout = 3 * time.Minute

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	meta := cfg.Metadata
	if meta == nil {
		meta = metadata.NewMiddleware(nil)
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(meta.Handler)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(cfg.Metrics))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(timeout))
		r.Use(request.BodyLimit(validation.MaxBodySize))
		r.Use(request.ContentTypeJSON)

		if cfg.Session != nil {
			cfg.Session.Register(r)
		}
		if cfg.Credentials != nil {
			cfg.Credentials.Register(r)
		}

		r.Group(func(r chi.Router) {
			if cfg.Validator != nil {
				r.Use(auth.RequireAuth(cfg.Validator, logger))
			}
			if cfg.Session != nil {
				cfg.Session.RegisterMutating(r)
			}
			if cfg.Credentials != nil {
				cfg.Credentials.RegisterMutating(r)
			}
		})
	})

	return r
}
