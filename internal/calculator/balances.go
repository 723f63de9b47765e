package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/pledgeboard/internal/models"
)

// LedgerSummary is what one user owes and is owed across open ledger entries.
type LedgerSummary struct {
	UserID    string
	Owed      decimal.Decimal // open entries where the user is the payer
	ToReceive decimal.Decimal // open entries where the user is the payee
}

// SummarizeLedger sums a user's open entries. Declared entries are settled
// between the parties and no longer count.
func SummarizeLedger(userID string, entries []models.LedgerEntry) LedgerSummary {
	out := LedgerSummary{UserID: userID, Owed: decimal.Zero, ToReceive: decimal.Zero}
	for _, e := range entries {
		if e.Status != models.LedgerOpen {
			continue
		}
		if e.PayerID == userID {
			out.Owed = out.Owed.Add(e.Amount)
		}
		if e.PayeeID == userID {
			out.ToReceive = out.ToReceive.Add(e.Amount)
		}
	}
	return out
}

// MemberBalance is one user's net position over a set of open entries.
type MemberBalance struct {
	UserID     string
	NetBalance decimal.Decimal // Positive = is owed money, Negative = owes money
	TotalOwed  decimal.Decimal
	ToReceive  decimal.Decimal
}

// DebtEdge is a simplified debt from one user to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// CalculateBalances nets open ledger entries into per-user balances and a
// minimal set of debts.
//
// Algorithm:
//   - For each open entry: payee +amount, payer -amount
//   - Debtors and creditors are matched greedily, largest first
func CalculateBalances(entries []models.LedgerEntry) ([]MemberBalance, []DebtEdge) {
	balances := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		b, ok := balances[id]
		if !ok {
			b = &MemberBalance{UserID: id, NetBalance: decimal.Zero, TotalOwed: decimal.Zero, ToReceive: decimal.Zero}
			balances[id] = b
		}
		return b
	}

	for _, e := range entries {
		if e.Status != models.LedgerOpen || e.PayerID == e.PayeeID {
			continue
		}
		get(e.PayerID).TotalOwed = get(e.PayerID).TotalOwed.Add(e.Amount)
		get(e.PayeeID).ToReceive = get(e.PayeeID).ToReceive.Add(e.Amount)
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.NetBalance = b.ToReceive.Sub(b.TotalOwed)
		memberBalances = append(memberBalances, *b)
	}
	sort.Slice(memberBalances, func(i, j int) bool { return memberBalances[i].UserID < memberBalances[j].UserID })

	var creditors, debtors []MemberBalance
	for _, b := range memberBalances {
		if b.NetBalance.IsPositive() {
			creditors = append(creditors, b)
		} else if b.NetBalance.IsNegative() {
			debtors = append(debtors, b)
		}
	}
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].NetBalance.GreaterThan(creditors[j].NetBalance) })
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].NetBalance.LessThan(debtors[j].NetBalance) })

	debtorLeft := make([]decimal.Decimal, len(debtors))
	for i, d := range debtors {
		debtorLeft[i] = d.NetBalance.Neg()
	}
	creditorLeft := make([]decimal.Decimal, len(creditors))
	for i, c := range creditors {
		creditorLeft[i] = c.NetBalance
	}

	// Amounts are exact decimals, so a side is done exactly when it hits zero.
	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtorLeft[i], creditorLeft[j])
		if amount.IsPositive() {
			edges = append(edges, DebtEdge{From: debtors[i].UserID, To: creditors[j].UserID, Amount: amount})
		}
		debtorLeft[i] = debtorLeft[i].Sub(amount)
		creditorLeft[j] = creditorLeft[j].Sub(amount)
		if debtorLeft[i].IsZero() {
			i++
		}
		if creditorLeft[j].IsZero() {
			j++
		}
	}

	return memberBalances, edges
}
