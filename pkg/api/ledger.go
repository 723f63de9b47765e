package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one debt from a settled deal. Status is "open" or
// "received_declared".
type LedgerEntry struct {
	ID         string          `json:"id"`
	DealType   string          `json:"deal_type"`
	DealID     string          `json:"deal_id"`
	PledgeID   string          `json:"pledge_id"`
	PayerID    string          `json:"payer_id"`
	PayerName  string          `json:"payer_name"`
	PayeeID    string          `json:"payee_id"`
	PayeeName  string          `json:"payee_name"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	DeclaredAt *time.Time      `json:"declared_at,omitempty"`
	CanDeclare bool            `json:"can_declare"`
}

type ListEntriesRequest struct{}

type ListEntriesResponse struct {
	Entries []*LedgerEntry `json:"entries"`
}

// Balance is one user's net position over the open entries the caller is
// part of. Positive means the user is owed money.
type Balance struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	NetBalance  decimal.Decimal `json:"net_balance"`
}

// Debt is one simplified payment that would clear the caller's open entries.
type Debt struct {
	FromUserID string          `json:"from_user_id"`
	FromName   string          `json:"from_name"`
	ToUserID   string          `json:"to_user_id"`
	ToName     string          `json:"to_name"`
	Amount     decimal.Decimal `json:"amount"`
}

type GetSummaryRequest struct{}

// GetSummaryResponse totals the caller's open entries.
type GetSummaryResponse struct {
	Owed      decimal.Decimal `json:"owed"`
	ToReceive decimal.Decimal `json:"to_receive"`
	Balances  []Balance       `json:"balances"`
	Debts     []Debt          `json:"debts"`
}

type DeclareReceivedRequest struct {
	EntryID string `json:"entry_id"`
}

type DeclareReceivedResponse struct {
	Entry *LedgerEntry `json:"entry"`
}
