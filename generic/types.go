/*
Package generic provides the shared vocabulary of the attendance engine.

PURPOSE:
  Domain-agnostic types used by every package: calendar days and wall-clock
  timestamps, the acting user, and the error taxonomy. Nothing in here
  touches storage or transport.

KEY CONCEPTS IN THIS FILE (types.go):
  - Role: closed set of platform roles (employee, admin, system_admin)
  - Actor: the authenticated caller, supplied by the transport layer

DESIGN PRINCIPLES:
  1. Closed sets: every enumeration has String() and an exact Parse
  2. Value types: Date and LocalTime compare with == / Equal
  3. Core only checks roles and ownership, it never authenticates

SEE ALSO:
  - time.go: Date and LocalTime
  - period.go: Period and OpenPeriod
  - errors.go: Error kinds
*/
package generic

import "fmt"

// =============================================================================
// ROLE
// =============================================================================

type Role string

const (
	RoleEmployee    Role = "employee"
	RoleAdmin       Role = "admin"
	RoleSystemAdmin Role = "system_admin"
)

// ParseRole is exact: unknown or differently cased values are rejected.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEmployee, RoleAdmin, RoleSystemAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }

// =============================================================================
// ACTOR
// =============================================================================

// Actor is the caller of a core operation.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool       { return a.Role == RoleAdmin || a.Role == RoleSystemAdmin }
func (a Actor) IsSystemAdmin() bool { return a.Role == RoleSystemAdmin }

// Owns reports whether the actor is the given user.
func (a Actor) Owns(userID string) bool { return a.UserID != "" && a.UserID == userID }

// RequireAdmin returns a Forbidden error unless the actor is an admin.
func RequireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return Forbidden("admin role required")
	}
	return nil
}
