package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ThreadStatus is derived on every read, never stored.
type ThreadStatus string

const (
	ThreadOpen             ThreadStatus = "open"
	ThreadFunded           ThreadStatus = "funded"
	ThreadExpired          ThreadStatus = "expired"
	ThreadCommittedCurrent ThreadStatus = "committed_current"
)

// Thread is a public commitment: the creator does the thing once pledges
// reach TargetAmount before Deadline.
type Thread struct {
	// ID is the unique identifier for the thread (UUID format).
	ID string

	CreatorID   string
	Title       string
	Description string

	// TargetAmount is the amount that, once pledged in full, funds the thread.
	TargetAmount decimal.Decimal

	// Deadline is the instant after which an unfunded thread is expired.
	Deadline time.Time

	Audience Audience

	// CommittedCurrent is the owner's one-shot early lock-in flag.
	CommittedCurrent bool

	// CommittedAmount is the pledged total captured when CommittedCurrent was set.
	CommittedAmount decimal.Decimal

	// Pledges are ordered newest first.
	Pledges []Pledge

	CreatedAt time.Time
}
