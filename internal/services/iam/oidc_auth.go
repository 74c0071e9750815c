package iam

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xenitab/go-oidc-middleware/oidctoken"
	"github.com/xenitab/go-oidc-middleware/options"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/config"
	"github.com/opendcs/odcsapi/internal/repository"
)

const bearerPrefix = "Bearer "

// OidcAuthCheck authorizes requests carrying an OIDC access token.
//
// Signature verification runs against the JWKS published at the
// configured endpoint; the standard claims (sub, iat, exp, iss) are
// validated by the token handler. Roles for the token subject come from
// the authorization repository, so the identity provider authenticates
// and the database still authorizes.
type OidcAuthCheck struct {
	tokenHandler *oidctoken.TokenHandler[map[string]any]
	authz        repository.AuthorizationRepository
}

// NewOidcAuthCheck builds the bearer-token check. A missing or
// unreachable JWKS endpoint is a fatal configuration error: the JWKS is
// fetched eagerly so the deployment fails at startup rather than on the
// first request.
func NewOidcAuthCheck(cfg config.OIDCConfig, authz repository.AuthorizationRepository) (*OidcAuthCheck, error) {
	if cfg.Issuer == "" || cfg.JWKSetURL == "" {
		return nil, fmt.Errorf("%w: OIDC issuer and JWK set url must be configured", auth.ErrConfiguration)
	}

	tokenHandler, err := oidctoken.New[map[string]any](nil,
		options.WithIssuer(cfg.Issuer),
		options.WithJwksUri(cfg.JWKSetURL),
		options.WithJwksFetchTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: initialize oidc token handler: %v", auth.ErrConfiguration, err)
	}

	return &OidcAuthCheck{tokenHandler: tokenHandler, authz: authz}, nil
}

// Authorize validates the bearer token and resolves the subject's roles.
func (c *OidcAuthCheck) Authorize(ctx context.Context, req AuthRequest) (*auth.SecurityContext, error) {
	header := req.Headers.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, fmt.Errorf("%w: no authorization header", auth.ErrAuthFailed)
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])

	claims, err := c.tokenHandler.ParseToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT: %v", auth.ErrAuthFailed, err)
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, fmt.Errorf("%w: token missing sub claim", auth.ErrAuthFailed)
	}

	roles, err := c.authz.RolesForUser(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("determine roles for %q: %w", subject, err)
	}

	return &auth.SecurityContext{
		Principal: auth.NewPrincipal(subject, roles...),
		Secure:    req.Secure,
		Scheme:    c.Scheme(),
	}, nil
}

// Supports matches the statically configured openid type only.
func (c *OidcAuthCheck) Supports(authType string, _ AuthRequest) bool {
	return authType == string(config.AuthTypeOpenID)
}

// Scheme identifies bearer-token authentication.
func (c *OidcAuthCheck) Scheme() string {
	return "Bearer"
}
