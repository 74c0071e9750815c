package repository

import (
	"context"
	"errors"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/db/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// AuthorizationRepository resolves API roles and API-key ownership from
// the backing database. Implementations must be safe for concurrent use.
type AuthorizationRepository interface {
	// RolesForUser maps the user's database role memberships to API
	// roles. Every known user gets GUEST; the manager-equivalent
	// privilege adds ADMIN and the processor-equivalent privilege adds
	// USER. A user with no memberships at all gets just GUEST.
	RolesForUser(ctx context.Context, username string) ([]auth.Role, error)

	// UserForAPIKey returns the username owning the given API key.
	// Returns ErrNotFound for unknown or expired keys.
	UserForAPIKey(ctx context.Context, apiKey string) (string, error)
}

// CredentialValidator validates a username/password pair by opening a
// real database connection with those credentials. A successful
// connection attempt is the authentication check.
type CredentialValidator interface {
	Validate(ctx context.Context, username, password string) error
}

// AppStatusProvider reports the runtime status of loading applications.
// The connection cache sweep fetches the full set once per cycle to
// bound query cost.
type AppStatusProvider interface {
	AppStatuses(ctx context.Context) ([]models.AppStatus, error)
}
