package auth

import "errors"

var (
	// ErrAuthFailed is returned when credentials are missing, malformed,
	// or rejected. Surfaced as a 401 response.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrForbidden is returned when a verified identity lacks every role
	// declared on the target operation. Surfaced as a 403 response.
	ErrForbidden = errors.New("insufficient role")

	// ErrConfiguration is returned for deployment mistakes (no auth
	// strategy configured, a route without a role declaration, missing
	// JWKS endpoint). Surfaced as a 500 response and never retried.
	ErrConfiguration = errors.New("security configuration error")
)
