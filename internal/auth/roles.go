package auth

import "fmt"

// Role is a coarse API permission tier.
//
// The role model is closed: every authenticated identity holds GUEST plus
// zero or more of USER/ADMIN, resolved once at authentication time from
// the backing database or identity provider.
type Role string

const (
	// RoleGuest is granted to every request, authenticated or not.
	// An endpoint that declares RoleGuest among its allowed roles is public.
	RoleGuest Role = "GUEST"

	// RoleUser is granted to identities holding the processor-equivalent
	// database privilege (OTSDB_MGR).
	RoleUser Role = "USER"

	// RoleAdmin is granted to identities holding the manager-equivalent
	// database privilege (OTSDB_ADMIN).
	RoleAdmin Role = "ADMIN"
)

// ParseRole converts a role name to a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleGuest, RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}
