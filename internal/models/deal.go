package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DealType distinguishes the two kinds of deal that can be settled.
type DealType string

const (
	DealThread  DealType = "thread"
	DealRequest DealType = "request"
)

// AudienceMode is the participation policy of a deal.
type AudienceMode string

const (
	AudienceOpen     AudienceMode = "open"
	AudienceGroup    AudienceMode = "group"
	AudienceSpecific AudienceMode = "specific"
)

// Valid reports whether m is a known audience mode.
func (m AudienceMode) Valid() bool {
	switch m {
	case AudienceOpen, AudienceGroup, AudienceSpecific:
		return true
	}
	return false
}

// Audience captures who may pledge or bid on a deal. It is fixed at creation;
// TargetUserIDs is a snapshot and is not re-validated later.
type Audience struct {
	Mode AudienceMode

	// GroupID is required for AudienceGroup and optional for AudienceSpecific,
	// where it only scopes which users could be picked as targets.
	GroupID string

	// TargetUserIDs is non-empty iff Mode is AudienceSpecific.
	TargetUserIDs []string
}

// Pledge is an append-only contribution toward a deal.
type Pledge struct {
	ID          string
	DealType    DealType
	DealID      string
	SupporterID string
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

// DealLock marks that settlement has been performed for a deal.
// Its existence is the only persisted settlement signal.
type DealLock struct {
	DealType  DealType
	DealID    string
	CreatedAt time.Time
}
