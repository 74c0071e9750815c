package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/services/iam"
	"github.com/opendcs/odcsapi/internal/session"
	"github.com/opendcs/odcsapi/internal/telemetry"
)

// Authorizer is the slice of the iam.Checker the filter needs.
type Authorizer interface {
	Authorize(ctx context.Context, req iam.AuthRequest) (*auth.SecurityContext, error)
}

// SecurityFilter is the per-request authentication and authorization
// gate. Every route must be wrapped with RolesAllowed; the declared
// role set drives the filter's state machine:
//
//	PUBLIC (roles include GUEST)      → guest context, no credential work
//	SECURED, fresh cached principal   → reuse, check is NOT re-run
//	SECURED, stale or absent          → run the configured check once,
//	                                    refresh the session cache
//
// After the identity is established the declared roles are enforced:
// the request proceeds only if the identity holds at least one of them.
type SecurityFilter struct {
	authorizer Authorizer
	sessions   session.Store

	// expiration yields the authorization freshness window. It is
	// invoked on every secured request rather than captured once, so
	// the window can be reconfigured at runtime.
	expiration func() time.Duration

	metrics *telemetry.AuthMetrics
}

// NewSecurityFilter assembles the filter.
func NewSecurityFilter(authorizer Authorizer, sessions session.Store, expiration func() time.Duration) *SecurityFilter {
	return &SecurityFilter{
		authorizer: authorizer,
		sessions:   sessions,
		expiration: expiration,
	}
}

// WithMetrics attaches authorization metric instruments to the filter.
func (f *SecurityFilter) WithMetrics(m *telemetry.AuthMetrics) *SecurityFilter {
	f.metrics = m
	return f
}

// RolesAllowed declares the allowed roles for the wrapped routes and
// returns the enforcing middleware. Declaring no roles at all is a
// deployment mistake and yields a 500 for every request: each endpoint,
// public or secured, must state its roles explicitly.
func (f *SecurityFilter) RolesAllowed(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(roles) == 0 {
				log.Printf("no roles declared for %s %s", r.Method, r.URL.Path)
				writeSecurityError(w, http.StatusInternalServerError, "endpoint missing role declaration")
				return
			}

			if containsRole(roles, auth.RoleGuest) {
				sc := &auth.SecurityContext{
					Principal: auth.GuestPrincipal(),
					Secure:    r.TLS != nil,
				}
				next.ServeHTTP(w, r.WithContext(auth.SetSecurityContext(r.Context(), sc)))
				return
			}

			sc, err := f.resolve(w, r)
			if err != nil {
				if errors.Is(err, auth.ErrConfiguration) {
					writeSecurityError(w, http.StatusInternalServerError, err.Error())
					return
				}
				log.Printf("authentication failed for %s %s: %v", r.Method, r.URL.Path, err)
				writeSecurityError(w, http.StatusUnauthorized, "authentication failed")
				return
			}

			if !sc.Principal.HasAnyRole(roles...) {
				log.Printf("%v: %s %s for %q", auth.ErrForbidden, r.Method, r.URL.Path, sc.Principal.Username())
				writeSecurityError(w, http.StatusForbidden, "user does not have the correct roles")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.SetSecurityContext(r.Context(), sc)))
		})
	}
}

// resolve produces the request's SecurityContext, reusing the session
// cache when the last authorization check is still fresh.
func (f *SecurityFilter) resolve(w http.ResponseWriter, r *http.Request) (*auth.SecurityContext, error) {
	now := time.Now()
	sessionID := session.IDFromRequest(r)

	rec, cached := f.sessions.Get(sessionID)
	if cached && rec.Principal != nil && now.Sub(rec.LastCheck) < f.expiration() {
		if f.metrics != nil {
			f.metrics.RecordSessionHit(r.Context())
		}
		return &auth.SecurityContext{
			Principal: rec.Principal,
			Secure:    r.TLS != nil,
			Scheme:    rec.Scheme,
		}, nil
	}

	ctx, span := telemetry.StartSpan(r.Context(), "odcsapi/middleware", "security.authorize",
		attribute.Bool("session.cached", cached),
	)
	defer span.End()

	authReq := iam.NewAuthRequest(r)
	if cp, ok := auth.GetContainerPrincipal(ctx); ok {
		authReq.Container = cp
	}

	sc, err := f.authorizer.Authorize(ctx, authReq)
	if err != nil {
		telemetry.RecordError(span, err)
		if f.metrics != nil {
			f.metrics.RecordCheck(ctx, "", "failure", float64(time.Since(now).Milliseconds()))
		}
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrPrincipal, sc.Principal.Username()))
	if f.metrics != nil {
		f.metrics.RecordCheck(ctx, sc.Scheme, "success", float64(time.Since(now).Milliseconds()))
	}

	if cached {
		f.sessions.Put(&session.Record{
			ID:        rec.ID,
			Principal: sc.Principal,
			Scheme:    sc.Scheme,
			LastCheck: now,
		})
	} else {
		fresh := f.sessions.New(sc.Principal, sc.Scheme, now)
		session.WriteCookie(w, fresh.ID, r.TLS != nil)
		if f.metrics != nil {
			f.metrics.SessionOpened(ctx)
		}
	}
	return sc, nil
}

func containsRole(roles []auth.Role, want auth.Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// writeSecurityError emits the API's structured error body.
func writeSecurityError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"message": message,
	})
}
