package iam

import (
	"context"
	"fmt"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/repository"
)

// mockAuthorizationRepository backs the checks with fixture data.
type mockAuthorizationRepository struct {
	roles     map[string][]auth.Role // username → roles
	apiKeys   map[string]string      // key → username
	roleCalls int
}

func (m *mockAuthorizationRepository) RolesForUser(ctx context.Context, username string) ([]auth.Role, error) {
	m.roleCalls++
	if roles, ok := m.roles[username]; ok {
		return roles, nil
	}
	return []auth.Role{auth.RoleGuest}, nil
}

func (m *mockAuthorizationRepository) UserForAPIKey(ctx context.Context, apiKey string) (string, error) {
	if username, ok := m.apiKeys[apiKey]; ok {
		return username, nil
	}
	return "", fmt.Errorf("api key: %w", repository.ErrNotFound)
}

// mockCredentialValidator records connection attempts.
type mockCredentialValidator struct {
	valid map[string]string // username → password
	calls int
}

func (m *mockCredentialValidator) Validate(ctx context.Context, username, password string) error {
	m.calls++
	if pw, ok := m.valid[username]; ok && pw == password {
		return nil
	}
	return fmt.Errorf("connection refused for %q", username)
}
