// Package iam provides the pluggable authorization checks for the
// OpenDCS REST API.
//
// Each deployment statically selects ONE check via configuration
// (basic, openid, or sso); the apikey check is self-selecting and, when
// enabled, runs ahead of the configured one whenever an apikey header is
// present. There is no runtime plugin discovery: the registry is a
// closed factory keyed by the configuration string.
//
//   - BasicAuthCheck: username/password validated by opening a real
//     database connection with the supplied credentials
//   - OidcAuthCheck: OIDC bearer tokens verified against a remote JWKS
//   - SsoAuthCheck: trusts an upstream single-sign-on valve
//   - APIKeyAuthCheck: Authorization "apikey <value>" header lookup
//
// Every check turns a request into a verified SecurityContext whose
// Principal carries pre-resolved, immutable roles. The security filter
// caches that Principal in the session and only re-runs the check once
// the authorization goes stale.
package iam
