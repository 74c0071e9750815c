package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/config"
	odcsmiddleware "github.com/opendcs/odcsapi/internal/middleware"
	"github.com/opendcs/odcsapi/internal/services/iam"
	"github.com/opendcs/odcsapi/internal/session"
)

// RouterOptions controls the construction of the API router.
type RouterOptions struct {
	Checker  *iam.Checker
	Sessions session.Store
	Filter   *odcsmiddleware.SecurityFilter
	Cfg      *config.Config

	CORSOptions   *cors.Options
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc

	// ExtraRoutes mounts additional route groups inside the filter's
	// scope; each route must still declare its own roles.
	ExtraRoutes func(chi.Router)
}

// DefaultCORSOptions returns the shared browser CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{"https://*", "http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy,
// and the authentication endpoints mounted. Every route, including the
// public ones, is wrapped by the security filter's role declaration.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))
	r.Use(odcsmiddleware.SecurityHeaders)

	// The SSO valve runs ahead of the filter so the container identity
	// is on the context before any check executes.
	if opts.Cfg != nil && opts.Cfg.AuthType == config.AuthTypeSSO {
		r.Use(odcsmiddleware.SSOValve(opts.Cfg.SSO))
	}

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	health := opts.HealthHandler
	if health == nil {
		health = defaultHealthHandler
	}

	public := opts.Filter.RolesAllowed(auth.RoleGuest)
	secured := opts.Filter.RolesAllowed(auth.RoleUser, auth.RoleAdmin)

	r.With(public).Get("/health", health)
	r.With(public).Post("/credentials", HandleLogin(opts.Checker, opts.Sessions))
	r.With(public).Delete("/logout", HandleLogout(opts.Sessions))
	r.With(secured).Get("/check", HandleCheck())

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}
