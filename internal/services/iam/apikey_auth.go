package iam

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/repository"
)

var apiKeyPattern = regexp.MustCompile(`^apikey (.+)$`)

// APIKeyAuthCheck authorizes requests carrying an
// "Authorization: apikey <value>" header. Unlike the other checks it is
// self-selecting: Supports reports true whenever such a header parses,
// letting the dispatcher run it ahead of the statically configured
// check.
type APIKeyAuthCheck struct {
	authz repository.AuthorizationRepository
}

// NewAPIKeyAuthCheck creates the API-key check.
func NewAPIKeyAuthCheck(authz repository.AuthorizationRepository) *APIKeyAuthCheck {
	return &APIKeyAuthCheck{authz: authz}
}

// Authorize resolves the key's owning user and that user's roles.
func (c *APIKeyAuthCheck) Authorize(ctx context.Context, req AuthRequest) (*auth.SecurityContext, error) {
	key := c.apiKey(req)
	if key == "" {
		return nil, fmt.Errorf("%w: no apikey found for client authorization", auth.ErrAuthFailed)
	}

	username, err := c.authz.UserForAPIKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown api key", auth.ErrAuthFailed)
		}
		return nil, fmt.Errorf("api key owner lookup: %w", err)
	}

	roles, err := c.authz.RolesForUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("determine roles for %q: %w", username, err)
	}

	return &auth.SecurityContext{
		Principal: auth.NewPrincipal(username, roles...),
		Secure:    req.Secure,
		Scheme:    c.Scheme(),
	}, nil
}

// Supports reports true whenever the request carries a parseable apikey
// header, independent of the configured auth type.
func (c *APIKeyAuthCheck) Supports(_ string, req AuthRequest) bool {
	return c.apiKey(req) != ""
}

// Scheme identifies API-key authentication.
func (c *APIKeyAuthCheck) Scheme() string {
	return "apikey"
}

func (c *APIKeyAuthCheck) apiKey(req AuthRequest) string {
	m := apiKeyPattern.FindStringSubmatch(req.Headers.Get("Authorization"))
	if m == nil {
		return ""
	}
	return m[1]
}
