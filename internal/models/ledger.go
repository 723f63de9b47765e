package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStatus is the acknowledgement state of a ledger entry.
type LedgerStatus string

const (
	LedgerOpen             LedgerStatus = "open"
	LedgerReceivedDeclared LedgerStatus = "received_declared"
)

// LedgerEntry records that PayerID owes PayeeID Amount because of a settled deal.
// Entries are immutable except for the single open -> received_declared step,
// which only the payee may take.
type LedgerEntry struct {
	ID       string
	DealType DealType
	DealID   string

	// PledgeID is the pledge this debt comes from. (DealType, DealID, PledgeID)
	// is unique, which makes ledger emission safe to retry.
	PledgeID string

	PayerID string
	PayeeID string
	Amount  decimal.Decimal
	Status  LedgerStatus

	CreatedAt  time.Time
	DeclaredAt *time.Time
}

// Settlement is the compound write produced when a deal is settled: the
// ledger entries plus the deal lock, committed atomically.
type Settlement struct {
	DealType DealType
	DealID   string
	PayeeID  string

	// WinnerBidID is set for reverse requests; storing the settlement also
	// closes the request with this winner.
	WinnerBidID string

	Entries   []LedgerEntry
	SettledAt time.Time
}
