// Package domain contains the core business entities for the storefront.
// These are plain Go structs; persistence and transport live elsewhere.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered principal.
// Identity fields are immutable after registration.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID `json:"id"`

	// Username is the unique handle used to log in.
	// Constraints: 3-255 characters.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// IsAdmin indicates whether the user may manage the catalog and all orders.
	IsAdmin bool `json:"isAdmin"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUser creates a new non-admin User with a fresh ID.
func NewUser(username, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Owns reports whether the user is the owner identified by ownerID.
func (u *User) Owns(ownerID uuid.UUID) bool {
	return u != nil && u.ID == ownerID
}
