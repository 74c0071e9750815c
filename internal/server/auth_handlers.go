package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/opendcs/odcsapi/internal/auth"
	"github.com/opendcs/odcsapi/internal/services/iam"
	"github.com/opendcs/odcsapi/internal/session"
)

// loginResponse is the body returned by a successful credentials POST.
type loginResponse struct {
	Username string `json:"username"`
}

// checkResponse echoes the authenticated identity for client probes.
type checkResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// HandleLogin runs the configured authorization check against the
// posted credentials (JSON body or Basic header) and establishes a
// server-side session on success.
//
// The route is declared PUBLIC so the security filter does not consume
// the credentials first; the handler owns the full exchange. Any
// session named by the request cookie is replaced, never reused, so a
// login always yields a fresh session id.
func HandleLogin(authorizer *iam.Checker, sessions session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := iam.NewAuthRequest(r)
		if cp, ok := auth.GetContainerPrincipal(r.Context()); ok {
			req.Container = cp
		}

		if r.Body != nil {
			var creds auth.Credentials
			err := json.NewDecoder(r.Body).Decode(&creds)
			switch {
			case err == nil:
				req.Credentials = &creds
			case errors.Is(err, io.EOF):
				// No body; the Basic header may still carry credentials.
			default:
				respondError(w, http.StatusBadRequest, "malformed credentials body")
				return
			}
		}

		sc, err := authorizer.Authorize(r.Context(), req)
		if err != nil {
			if errors.Is(err, auth.ErrConfiguration) {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			log.Printf("login failed: %v", err)
			respondError(w, http.StatusUnauthorized, "authentication failed")
			return
		}

		if old := session.IDFromRequest(r); old != "" {
			sessions.Invalidate(old)
		}
		rec := sessions.New(sc.Principal, sc.Scheme, time.Now())
		session.WriteCookie(w, rec.ID, r.TLS != nil)

		respondJSON(w, http.StatusOK, loginResponse{Username: sc.Principal.Username()})
	}
}

// HandleCheck is a pure authorization probe. The security filter has
// already authenticated the request and enforced USER or ADMIN, so
// reaching the handler is the result; the body just echoes who asked.
func HandleCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := auth.GetSecurityContext(r.Context())
		if !ok {
			respondError(w, http.StatusInternalServerError, "no security context on request")
			return
		}
		roles := sc.Principal.Roles()
		names := make([]string, 0, len(roles))
		for _, role := range roles {
			names = append(names, string(role))
		}
		respondJSON(w, http.StatusOK, checkResponse{
			Username: sc.Principal.Username(),
			Roles:    names,
		})
	}
}

// HandleLogout destroys the caller's session. Always responds 204:
// logging out without a session, or twice, is not an error.
func HandleLogout(sessions session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id := session.IDFromRequest(r); id != "" {
			sessions.Invalidate(id)
		}
		session.ClearCookie(w, r.TLS != nil)
		w.WriteHeader(http.StatusNoContent)
	}
}
