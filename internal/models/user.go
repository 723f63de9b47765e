package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. Deals, pledges, bids and ledger
// entries reference users by ID.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the unique login handle.
	Username string

	// DisplayName is shown next to pledges and deals.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser builds a user with a fresh ID and timestamps.
func NewUser(username, displayName, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
