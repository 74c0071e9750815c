// Package session provides the server-side session store backing the
// security filter's principal cache.
//
// The store is modeled as an explicit key-value abstraction rather than a
// container-provided session object, so the filter logic is testable
// without an HTTP server. Sessions are keyed by an opaque id carried in
// an HttpOnly cookie.
package session

import (
	"net/http"
	"time"

	"github.com/opendcs/odcsapi/internal/auth"
)

// CookieName is the session cookie issued to API clients.
const CookieName = "odcsapi.session"

// Record is one server-side session. A record holds at most one cached
// Principal and the timestamp of the last successful authorization
// check. Records are replaced, not mutated, when the authorization is
// refreshed.
type Record struct {
	// ID is the opaque session identifier, also used as the key into
	// the client connection cache.
	ID string

	// Principal is the identity cached by the last authorization check.
	Principal *auth.Principal

	// Scheme labels the mechanism that established the cached identity.
	Scheme string

	// LastCheck is when the authorization was last verified. The
	// security filter re-verifies once now-LastCheck exceeds the
	// configured expiration duration.
	LastCheck time.Time
}

// Store is the session key-value abstraction consumed by the security
// filter and the logout endpoint.
type Store interface {
	// Get returns the record for the given session id, or false when
	// the session does not exist or has timed out.
	Get(id string) (*Record, bool)

	// Put stores (or replaces) a record under its id, resetting the
	// container-level inactivity timeout.
	Put(rec *Record)

	// New creates a record with a freshly generated session id and
	// stores it.
	New(principal *auth.Principal, scheme string, lastCheck time.Time) *Record

	// Invalidate destroys the session. Invalidating an unknown or
	// already-destroyed session is a no-op.
	Invalidate(id string)

	// Close destroys every session and releases store resources.
	Close()
}

// IDFromRequest extracts the session id from the request cookie.
// Returns "" when no session cookie is present.
func IDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// WriteCookie attaches the session cookie to the response.
func WriteCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on the client.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
