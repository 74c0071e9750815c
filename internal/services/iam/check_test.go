package iam

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendcs/odcsapi/internal/config"
)

func checkerConfig(authType config.AuthType, apiKeys bool) *config.Config {
	return &config.Config{AuthType: authType, APIKeysEnabled: apiKeys}
}

func TestNewCheckerSelectsConfiguredStrategy(t *testing.T) {
	deps := Dependencies{
		Authz:     &mockAuthorizationRepository{},
		Validator: &mockCredentialValidator{},
	}

	basic, err := NewChecker(checkerConfig(config.AuthTypeBasic, false), deps)
	require.NoError(t, err)
	assert.IsType(t, &BasicAuthCheck{}, basic.Select(AuthRequest{}))

	sso, err := NewChecker(checkerConfig(config.AuthTypeSSO, false), deps)
	require.NoError(t, err)
	assert.IsType(t, &SsoAuthCheck{}, sso.Select(AuthRequest{}))
}

func TestNewCheckerUnknownTypeFails(t *testing.T) {
	_, err := NewChecker(checkerConfig("ldap", false), Dependencies{})
	require.Error(t, err)
}

func TestCheckerAPIKeySelfSelection(t *testing.T) {
	deps := Dependencies{
		Authz:     apiKeyFixtures(),
		Validator: &mockCredentialValidator{},
	}
	checker, err := NewChecker(checkerConfig(config.AuthTypeBasic, true), deps)
	require.NoError(t, err)

	// An apikey header routes past the configured basic check.
	withKey := AuthRequest{Headers: apiKeyHeaders("apikey c0ffee")}
	assert.IsType(t, &APIKeyAuthCheck{}, checker.Select(withKey))

	// Without the header the configured check handles the request.
	assert.IsType(t, &BasicAuthCheck{}, checker.Select(AuthRequest{Headers: http.Header{}}))
}

func TestCheckerAPIKeyDisabled(t *testing.T) {
	deps := Dependencies{
		Authz:     apiKeyFixtures(),
		Validator: &mockCredentialValidator{},
	}
	checker, err := NewChecker(checkerConfig(config.AuthTypeBasic, false), deps)
	require.NoError(t, err)

	withKey := AuthRequest{Headers: apiKeyHeaders("apikey c0ffee")}
	assert.IsType(t, &BasicAuthCheck{}, checker.Select(withKey))
}
