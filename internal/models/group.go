package models

import "time"

// MembershipStatus is the state of a user's membership in a group.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipAccepted MembershipStatus = "accepted"
)

// Group is a set of users that deals can be restricted to.
// Only accepted memberships count for audience checks.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Climbing crew").
	Name string

	// OwnerID is the user who created the group and may invite others.
	OwnerID string

	// Members lists every membership, pending ones included.
	Members []Membership

	CreatedAt time.Time
}

// Membership links a user to a group.
type Membership struct {
	GroupID   string
	UserID    string
	Status    MembershipStatus
	InvitedBy string
	CreatedAt time.Time
}
