package iam

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendcs/odcsapi/internal/auth"
)

func TestSsoAuthorizeManager(t *testing.T) {
	check := NewSsoAuthCheck()

	sc, err := check.Authorize(context.Background(), AuthRequest{
		Container: &auth.ContainerPrincipal{Name: "carol", Roles: []string{"CCP Mgr"}},
		Secure:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "carol", sc.Principal.Username())
	assert.ElementsMatch(t, []auth.Role{auth.RoleGuest, auth.RoleAdmin}, sc.Principal.Roles())
	assert.Equal(t, SsoCookieName, sc.Scheme)
}

func TestSsoAuthorizeProcessor(t *testing.T) {
	check := NewSsoAuthCheck()

	sc, err := check.Authorize(context.Background(), AuthRequest{
		Container: &auth.ContainerPrincipal{Name: "dave", Roles: []string{"CCP Proc", "unrelated"}},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []auth.Role{auth.RoleGuest, auth.RoleUser}, sc.Principal.Roles())
}

func TestSsoAuthorizeNoContainerRoles(t *testing.T) {
	check := NewSsoAuthCheck()

	sc, err := check.Authorize(context.Background(), AuthRequest{
		Container: &auth.ContainerPrincipal{Name: "erin"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []auth.Role{auth.RoleGuest}, sc.Principal.Roles())
}

func TestSsoAuthorizeMissingContainerPrincipal(t *testing.T) {
	check := NewSsoAuthCheck()

	_, err := check.Authorize(context.Background(), AuthRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrAuthFailed))
}
