package iam

import (
	"context"
	"fmt"
	"net/http"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/config"
	"github.com/opendcs/odcsapi/internal/repository"
)

// AuthorizationCheck verifies a request's credentials and produces the
// SecurityContext consumed by role enforcement.
//
// Return values:
//   - (*SecurityContext, nil): identity verified, roles resolved
//   - (nil, error): authentication failed; the error wraps
//     auth.ErrAuthFailed for credential problems and
//     auth.ErrConfiguration for deployment mistakes
//
// Implementations must be stateless and safe for concurrent use; all
// caching happens in the session store, not in the check.
type AuthorizationCheck interface {
	// Authorize validates the request's credentials and returns the
	// resulting SecurityContext.
	Authorize(ctx context.Context, req AuthRequest) (*auth.SecurityContext, error)

	// Supports reports whether this check wants to handle the request
	// given the configured auth type. Only self-selecting variants
	// (apikey) inspect the request; the rest match on type alone. This
	// is the hook for future multi-strategy dispatch.
	Supports(authType string, req AuthRequest) bool

	// Scheme labels the authentication mechanism for the
	// SecurityContext and documentation purposes.
	Scheme() string
}

// AuthRequest wraps the request data the checks need, decoupling them
// from http.Request so they are testable without a server.
type AuthRequest struct {
	// Headers contains the HTTP headers (including Authorization).
	Headers http.Header

	// Cookies contains the parsed request cookies.
	Cookies []*http.Cookie

	// Credentials carries the decoded login body, when the request is
	// a credentials POST. Nil otherwise.
	Credentials *auth.Credentials

	// Secure reports whether the request arrived over TLS.
	Secure bool

	// Container is the identity established by an upstream SSO valve,
	// when one fronts this deployment. Nil otherwise.
	Container *auth.ContainerPrincipal
}

// NewAuthRequest extracts an AuthRequest from an HTTP request.
func NewAuthRequest(r *http.Request) AuthRequest {
	return AuthRequest{
		Headers: r.Header,
		Cookies: r.Cookies(),
		Secure:  r.TLS != nil,
	}
}

// Dependencies bundles the collaborators the checks draw on.
type Dependencies struct {
	Authz     repository.AuthorizationRepository
	Validator repository.CredentialValidator
}

// Checker owns the deployment's active check plus the optional
// self-selecting apikey check, and dispatches per request.
type Checker struct {
	authType config.AuthType
	primary  AuthorizationCheck
	apiKey   *APIKeyAuthCheck
}

// NewChecker builds the configured check set. An unknown auth type or a
// failed OIDC initialization is a fatal configuration error.
func NewChecker(cfg *config.Config, deps Dependencies) (*Checker, error) {
	var primary AuthorizationCheck
	var err error

	switch cfg.AuthType {
	case config.AuthTypeBasic:
		primary = NewBasicAuthCheck(deps.Validator, deps.Authz)
	case config.AuthTypeOpenID:
		primary, err = NewOidcAuthCheck(cfg.OIDC, deps.Authz)
		if err != nil {
			return nil, err
		}
	case config.AuthTypeSSO:
		primary = NewSsoAuthCheck()
	default:
		return nil, fmt.Errorf("%w: no authorization check for auth type %q",
			auth.ErrConfiguration, cfg.AuthType)
	}

	c := &Checker{authType: cfg.AuthType, primary: primary}
	if cfg.APIKeysEnabled {
		c.apiKey = NewAPIKeyAuthCheck(deps.Authz)
	}
	return c, nil
}

// Select returns the check that should authorize this request: the
// apikey check when it is enabled and the request carries an apikey
// header, otherwise the statically configured one.
func (c *Checker) Select(req AuthRequest) AuthorizationCheck {
	if c.apiKey != nil && c.apiKey.Supports(string(c.authType), req) {
		return c.apiKey
	}
	return c.primary
}

// Authorize dispatches to the selected check.
func (c *Checker) Authorize(ctx context.Context, req AuthRequest) (*auth.SecurityContext, error) {
	return c.Select(req).Authorize(ctx, req)
}
