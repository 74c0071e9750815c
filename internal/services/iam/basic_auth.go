package iam

import (
	"context"
	"fmt"
	"log"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/config"
	"github.com/opendcs/odcsapi/internal/repository"
)

// BasicAuthCheck authorizes requests carrying username/password
// credentials, either in a login body or an Authorization: Basic header.
//
// The check works in three steps:
//  1. Syntax-validate the credentials. Anything that could smuggle SQL
//     metacharacters is rejected here, before any database work.
//  2. Open a fresh database connection AS the supplied user. The
//     connection attempt is the authentication check: the database is
//     the credential authority, so a successful login proves validity.
//  3. Map the user's database role memberships to API roles. A user
//     with neither the manager- nor processor-equivalent privilege is
//     rejected.
//
// The raw password is dropped after step 2; only the derived Principal
// is ever cached.
type BasicAuthCheck struct {
	validator repository.CredentialValidator
	authz     repository.AuthorizationRepository
}

// NewBasicAuthCheck creates the database-credential check.
func NewBasicAuthCheck(validator repository.CredentialValidator, authz repository.AuthorizationRepository) *BasicAuthCheck {
	return &BasicAuthCheck{validator: validator, authz: authz}
}

// Authorize validates the supplied credentials against the database.
func (c *BasicAuthCheck) Authorize(ctx context.Context, req AuthRequest) (*auth.SecurityContext, error) {
	creds := req.Credentials
	if creds == nil {
		parsed, err := auth.ParseBasicHeader(req.Headers.Get("Authorization"))
		if err != nil {
			return nil, err
		}
		creds = parsed
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	if err := c.validator.Validate(ctx, creds.Username, creds.Password); err != nil {
		log.Printf("basic auth failed for %q: %v", creds.Username, err)
		return nil, fmt.Errorf("%w: db connection failed with passed credentials", auth.ErrAuthFailed)
	}

	roles, err := c.authz.RolesForUser(ctx, creds.Username)
	if err != nil {
		return nil, fmt.Errorf("determine roles for %q: %w", creds.Username, err)
	}

	principal := auth.NewPrincipal(creds.Username, roles...)
	if !principal.HasAnyRole(auth.RoleUser, auth.RoleAdmin) {
		return nil, fmt.Errorf("%w: user does not have OTSDB_ADMIN or OTSDB_MGR privilege", auth.ErrAuthFailed)
	}

	return &auth.SecurityContext{
		Principal: principal,
		Secure:    req.Secure,
		Scheme:    c.Scheme(),
	}, nil
}

// Supports matches the statically configured basic type only.
func (c *BasicAuthCheck) Supports(authType string, _ AuthRequest) bool {
	return authType == string(config.AuthTypeBasic)
}

// Scheme identifies HTTP basic authentication.
func (c *BasicAuthCheck) Scheme() string {
	return "Basic"
}
