package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents a user's role within an organization.
type UserRole string

const (
	// UserRoleAdmin can manage organizations, users, and all library data.
	UserRoleAdmin UserRole = "admin"
	// UserRoleMember can create and progress assessments.
	UserRoleMember UserRole = "member"
	// UserRoleViewer has read-only access.
	UserRoleViewer UserRole = "viewer"
)

// Valid reports whether the role is a known value.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleMember, UserRoleViewer:
		return true
	}
	return false
}

// User represents an authenticated user of the system.
type User struct {
	ID           uuid.UUID `json:"id"`
	OrgID        uuid.UUID `json:"org_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	OIDCSubject  string    `json:"-"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a new User in the given organization.
func NewUser(orgID uuid.UUID, email, name string, role UserRole) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		OrgID:     orgID,
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
