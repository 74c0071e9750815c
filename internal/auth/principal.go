package auth

// Principal represents an authenticated identity with pre-resolved roles.
//
// This struct is IMMUTABLE after construction. Roles are computed once at
// authentication time and never modified, so a Principal cached in the
// session store can be shared across request goroutines without locking.
type Principal struct {
	username string
	roles    map[Role]struct{}
}

// NewPrincipal constructs a Principal from a username and role set.
// The role slice is defensively copied; mutations to it after the call
// do not affect the Principal.
func NewPrincipal(username string, roles ...Role) *Principal {
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return &Principal{username: username, roles: set}
}

// GuestPrincipal returns the shared anonymous identity attached to
// public-endpoint requests.
func GuestPrincipal() *Principal {
	return NewPrincipal("guest", RoleGuest)
}

// Username returns the verified identity name.
func (p *Principal) Username() string {
	return p.username
}

// Roles returns a copy of the granted role set. Ordering is unspecified.
func (p *Principal) Roles() []Role {
	out := make([]Role, 0, len(p.roles))
	for r := range p.roles {
		out = append(out, r)
	}
	return out
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(role Role) bool {
	_, ok := p.roles[role]
	return ok
}

// HasAnyRole reports whether the principal holds at least one of the
// given roles. An empty argument list always reports false.
func (p *Principal) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// SecurityContext pairs a Principal with per-request transport metadata.
// One is derived for every request that passes the security filter,
// either from a session cache hit or from a fresh authorization check.
type SecurityContext struct {
	// Principal is the verified identity. Never nil.
	Principal *Principal

	// Secure reports whether the request arrived over TLS.
	Secure bool

	// Scheme labels the authentication mechanism that established the
	// identity (e.g. "Basic", "Bearer", "apikey", SSO cookie name).
	Scheme string
}

// ContainerPrincipal carries an identity established by an upstream
// single-sign-on valve (a fronting reverse proxy that terminates SSO and
// forwards the verified user and its container-level role memberships).
type ContainerPrincipal struct {
	Name  string
	Roles []string
}

// InRole reports whether the container principal holds the named
// container-level role.
func (c *ContainerPrincipal) InRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
