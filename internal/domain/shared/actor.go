package shared

import (
	"slices"

	"github.com/google/uuid"
)

// Role is the dealership role an actor acts under
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleSales      Role = "SALES"
	RoleAccountant Role = "ACCOUNTANT"
	RoleViewer     Role = "VIEWER"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales, RoleAccountant, RoleViewer:
		return true
	}
	return false
}

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Role     Role      `json:"role"`
}

// HasRole reports whether the actor's role is one of the given roles
func (a Actor) HasRole(roles ...Role) bool {
	return slices.Contains(roles, a.Role)
}

// Authorize returns an AUTHORIZATION error unless the actor holds one of the roles.
// Admins are always allowed.
func (a Actor) Authorize(roles ...Role) error {
	if a.UserID == uuid.Nil || a.TenantID == uuid.Nil {
		return ErrUnauthorized
	}
	if a.Role == RoleAdmin || a.HasRole(roles...) {
		return nil
	}
	return NewAuthorizationError("role "+string(a.Role)+" is not allowed to perform this operation").
		WithDetail("role", a.Role).
		WithDetail("allowedRoles", roles)
}
