package shared

import "github.com/google/uuid"

// Role claims issued by the identity provider
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the authenticated caller, taken from the bearer token
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the caller holds the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the caller may read a resource owned by ownerID
func (i Identity) CanAccess(ownerID uuid.UUID) bool {
	return i.IsAdmin() || (i.UserID != uuid.Nil && i.UserID == ownerID)
}
