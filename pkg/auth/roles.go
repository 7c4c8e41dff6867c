// Package auth provides role definitions, password hashing, and session
// token management for the NetFusion API.
package auth

import "fmt"

// Role represents a user role. Roles are totally ordered by privilege:
// read_only < user < admin < owner.
type Role string

const (
	RoleReadOnly Role = "read_only" // Can view resources within granted sites
	RoleUser     Role = "user"      // Regular user, site-scoped access
	RoleAdmin    Role = "admin"     // Full access, manages sites and grants
	RoleOwner    Role = "owner"     // Full access, created at first run
)

// roleRank maps each canonical role to its position in the privilege order.
var roleRank = map[Role]int{
	RoleReadOnly: 0,
	RoleUser:     1,
	RoleAdmin:    2,
	RoleOwner:    3,
}

// AllRoles returns the canonical roles in ascending privilege order.
func AllRoles() []Role {
	return []Role{RoleReadOnly, RoleUser, RoleAdmin, RoleOwner}
}

// ParseRole validates a role string against the canonical set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role: %q", s)
	}
	return r, nil
}

// Valid reports whether the role is one of the four canonical values.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Unrestricted reports whether the role bypasses per-site access grants.
func (r Role) Unrestricted() bool {
	return r == RoleAdmin || r == RoleOwner
}

// MeetsMinimum reports whether role ranks at or above min in the privilege
// order. A role outside the canonical set indicates a data-integrity bug
// (roles are validated on every write path), so it is returned as an error
// rather than treated as a denial.
func MeetsMinimum(role, min Role) (bool, error) {
	rr, ok := roleRank[role]
	if !ok {
		return false, fmt.Errorf("invalid role: %q", role)
	}
	mr, ok := roleRank[min]
	if !ok {
		return false, fmt.Errorf("invalid minimum role: %q", min)
	}
	return rr >= mr, nil
}

// Identity is a resolved request identity: who the caller is and what role
// they hold. Produced by the session layer, consumed by access checks.
type Identity struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
