package auth

import (
	"errors"
	"fmt"
	"slices"
)

// Role is an authorisation tier. Each role includes everything below it.
type Role string

const (
	// RoleViewer can read device status, queues and history.
	RoleViewer Role = "viewer"

	// RoleOperator can also send commands and withdraw queued ones.
	RoleOperator Role = "operator"

	// RoleAdmin can also clear whole queues and toggle dispatch.
	RoleAdmin Role = "admin"
)

// ValidRoles lists the roles in ascending order of privilege.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !slices.Contains(ValidRoles, r) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Sentinel errors.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrTokenMissing = errors.New("auth: missing bearer token")
	ErrForbidden    = errors.New("auth: insufficient permissions")
	ErrInvalidRole  = errors.New("auth: invalid role")
	ErrNoSecret     = errors.New("auth: signing secret is empty")
)
