package iam

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/config"
)

// oidcFixture is a minimal identity provider: an RSA signing key and an
// HTTP server publishing the matching JWKS.
type oidcFixture struct {
	issuer string
	server *httptest.Server
	signer jose.Signer
}

func newOidcFixture(t *testing.T) *oidcFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     "test-key",
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}}
	payload, err := json.Marshal(jwks)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", "test-key"),
	)
	require.NoError(t, err)

	return &oidcFixture{
		issuer: "https://idp.example.com",
		server: server,
		signer: signer,
	}
}

func (f *oidcFixture) oidcConfig() config.OIDCConfig {
	return config.OIDCConfig{Issuer: f.issuer, JWKSetURL: f.server.URL}
}

func (f *oidcFixture) token(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.Signed(f.signer).Claims(claims).Serialize()
	require.NoError(t, err)
	return token
}

func (f *oidcFixture) validClaims(subject string) jwt.Claims {
	now := time.Now()
	return jwt.Claims{
		Issuer:   f.issuer,
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(time.Hour)),
		ID:       "jti-1",
	}
}

func bearerHeaders(token string) http.Header {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	return headers
}

func TestOidcAuthorizeValidToken(t *testing.T) {
	fixture := newOidcFixture(t)
	authz := &mockAuthorizationRepository{roles: map[string][]auth.Role{
		"alice@example.com": {auth.RoleGuest, auth.RoleAdmin},
	}}

	check, err := NewOidcAuthCheck(fixture.oidcConfig(), authz)
	require.NoError(t, err)

	token := fixture.token(t, fixture.validClaims("alice@example.com"))
	sc, err := check.Authorize(context.Background(), AuthRequest{Headers: bearerHeaders(token)})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", sc.Principal.Username())
	assert.ElementsMatch(t, []auth.Role{auth.RoleGuest, auth.RoleAdmin}, sc.Principal.Roles())
	assert.Equal(t, "Bearer", sc.Scheme)
}

func TestOidcAuthorizeExpiredToken(t *testing.T) {
	fixture := newOidcFixture(t)
	check, err := NewOidcAuthCheck(fixture.oidcConfig(), &mockAuthorizationRepository{})
	require.NoError(t, err)

	claims := fixture.validClaims("alice@example.com")
	claims.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
	claims.Expiry = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	_, err = check.Authorize(context.Background(), AuthRequest{
		Headers: bearerHeaders(fixture.token(t, claims)),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrAuthFailed))
}

func TestOidcAuthorizeWrongIssuer(t *testing.T) {
	fixture := newOidcFixture(t)
	check, err := NewOidcAuthCheck(fixture.oidcConfig(), &mockAuthorizationRepository{})
	require.NoError(t, err)

	claims := fixture.validClaims("alice@example.com")
	claims.Issuer = "https://evil.example.com"

	_, err = check.Authorize(context.Background(), AuthRequest{
		Headers: bearerHeaders(fixture.token(t, claims)),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrAuthFailed))
}

func TestOidcAuthorizeGarbageToken(t *testing.T) {
	fixture := newOidcFixture(t)
	check, err := NewOidcAuthCheck(fixture.oidcConfig(), &mockAuthorizationRepository{})
	require.NoError(t, err)

	_, err = check.Authorize(context.Background(), AuthRequest{
		Headers: bearerHeaders("not.a.jwt"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrAuthFailed))
}

func TestOidcAuthorizeMissingHeader(t *testing.T) {
	fixture := newOidcFixture(t)
	check, err := NewOidcAuthCheck(fixture.oidcConfig(), &mockAuthorizationRepository{})
	require.NoError(t, err)

	_, err = check.Authorize(context.Background(), AuthRequest{Headers: http.Header{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrAuthFailed))
}

func TestOidcUnsetConfigurationIsFatal(t *testing.T) {
	_, err := NewOidcAuthCheck(config.OIDCConfig{}, &mockAuthorizationRepository{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrConfiguration))
}
