package middleware

import (
	"net/http"
	"strings"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/config"
)

// SSOValve extracts the identity established by a fronting single-sign-on
// reverse proxy and attaches it to the request context for the sso
// authorization check.
//
// The valve headers are only trustworthy when the proxy strips them from
// client traffic; deployments without such a proxy must not enable the
// sso auth type.
func SSOValve(cfg config.SSOConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := r.Header.Get(cfg.UserHeader)
			if user == "" {
				next.ServeHTTP(w, r)
				return
			}

			var roles []string
			if raw := r.Header.Get(cfg.RolesHeader); raw != "" {
				for _, role := range strings.Split(raw, ",") {
					if role = strings.TrimSpace(role); role != "" {
						roles = append(roles, role)
					}
				}
			}

			ctx := auth.SetContainerPrincipal(r.Context(), &auth.ContainerPrincipal{
				Name:  user,
				Roles: roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
