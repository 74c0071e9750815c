package iam

import (
	"context"
	"fmt"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/config"
)

// Container-level role names granted by the CWMS single-sign-on valve.
const (
	ssoRoleManager   = "CCP Mgr"
	ssoRoleProcessor = "CCP Proc"
)

// SsoCookieName is the single-sign-on session cookie set by the
// upstream valve, used as the scheme label for SSO-established contexts.
const SsoCookieName = "JSESSIONIDSSO"

// SsoAuthCheck trusts an upstream single-sign-on valve that has already
// authenticated the request and populated the container principal with
// its container-level role memberships. The check only translates those
// memberships into API roles; it performs no credential work of its own.
type SsoAuthCheck struct{}

// NewSsoAuthCheck creates the SSO check.
func NewSsoAuthCheck() *SsoAuthCheck {
	return &SsoAuthCheck{}
}

// Authorize maps the container principal to an API security context.
func (c *SsoAuthCheck) Authorize(_ context.Context, req AuthRequest) (*auth.SecurityContext, error) {
	container := req.Container
	if container == nil || container.Name == "" {
		return nil, fmt.Errorf("%w: invalid session", auth.ErrAuthFailed)
	}

	roles := []auth.Role{auth.RoleGuest}
	if container.InRole(ssoRoleManager) {
		roles = append(roles, auth.RoleAdmin)
	}
	if container.InRole(ssoRoleProcessor) {
		roles = append(roles, auth.RoleUser)
	}

	return &auth.SecurityContext{
		Principal: auth.NewPrincipal(container.Name, roles...),
		Secure:    req.Secure,
		Scheme:    c.Scheme(),
	}, nil
}

// Supports matches the statically configured sso type only.
func (c *SsoAuthCheck) Supports(authType string, _ AuthRequest) bool {
	return authType == string(config.AuthTypeSSO)
}

// Scheme identifies SSO-cookie authentication.
func (c *SsoAuthCheck) Scheme() string {
	return SsoCookieName
}
