package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/db/models"
)

// Database roles granting API privileges. OTSDB_ADMIN is the
// manager-equivalent privilege, OTSDB_MGR the processor-equivalent one.
const (
	dbRoleAdmin = "OTSDB_ADMIN"
	dbRoleUser  = "OTSDB_MGR"
)

// queryTimeout bounds each authorization lookup so a stuck database
// cannot hold request handlers open indefinitely.
const queryTimeout = 10 * time.Second

// BunAuthorizationRepository implements AuthorizationRepository against
// the Postgres role-membership catalog and the api_keys table.
type BunAuthorizationRepository struct {
	db *bun.DB
}

// NewBunAuthorizationRepository creates a new Bun-based authorization repository.
func NewBunAuthorizationRepository(db *bun.DB) *BunAuthorizationRepository {
	return &BunAuthorizationRepository{db: db}
}

// RolesForUser maps the user's database role memberships to API roles.
// This query only works on Postgres; other backends need their own
// AuthorizationRepository implementation.
func (r *BunAuthorizationRepository) RolesForUser(ctx context.Context, username string) ([]auth.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var memberships []models.RoleMembership
	err := r.db.NewRaw(
		"SELECT pm.roleid, pr.rolname FROM pg_auth_members pm "+
			"JOIN pg_roles pr ON pm.roleid = pr.oid "+
			"WHERE pm.member = (SELECT oid FROM pg_roles WHERE rolname = ?)",
		username,
	).Scan(ctx, &memberships)
	if err != nil {
		return nil, fmt.Errorf("role membership lookup for %q: %w", username, err)
	}

	roles := []auth.Role{auth.RoleGuest}
	for _, m := range memberships {
		switch {
		case strings.EqualFold(m.RoleName, dbRoleAdmin):
			roles = append(roles, auth.RoleAdmin)
		case strings.EqualFold(m.RoleName, dbRoleUser):
			roles = append(roles, auth.RoleUser)
		}
	}
	return roles, nil
}

// UserForAPIKey returns the username owning the given API key, skipping
// expired keys.
func (r *BunAuthorizationRepository) UserForAPIKey(ctx context.Context, apiKey string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	key := new(models.APIKey)
	err := r.db.NewSelect().
		Model(key).
		Where("api_key = ?", apiKey).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("api key lookup: %w", err)
	}
	return key.Username, nil
}
