package domain

import (
	"time"

	"github.com/google/uuid"
)

// Roles a user can hold. Only an admin can change a user's role.
const (
	RoleJobSeeker = "jobseeker"
	RoleRecruiter = "recruiter"
	RoleAdmin     = "admin"
	RoleEmployer  = "employer"
)

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleJobSeeker, RoleRecruiter, RoleAdmin, RoleEmployer:
		return true
	}
	return false
}

// User represents a registered user. Rows are never hard-deleted.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity is the resolved caller of a request.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IdentityOf projects a user row onto the caller identity.
func IdentityOf(u *User) *Identity {
	return &Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// TokenClaims is the verified payload of a session token issued by the identity provider.
type TokenClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// AccessOutcome is the result kind of an authorization check.
type AccessOutcome int

const (
	AccessUnauthorized AccessOutcome = iota
	AccessForbidden
	AccessGranted
)

// Access is the typed outcome of resolving a caller against a set of allowed roles.
// Identity is set only when Outcome is AccessGranted or AccessForbidden.
type Access struct {
	Outcome  AccessOutcome
	Identity *Identity
	Reason   string
}

// UpdateRoleRequest is the validated input for an admin role change.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=jobseeker recruiter admin employer"`
}

// NewID generates a new UUID for any persisted entity.
func NewID() string {
	return uuid.New().String()
}
