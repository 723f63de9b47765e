package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/pledgeboard/internal/calculator"
	"github.com/mmynk/pledgeboard/internal/settlement"
	"github.com/mmynk/pledgeboard/internal/storage"
	"github.com/mmynk/pledgeboard/pkg/api"
	"github.com/mmynk/pledgeboard/pkg/api/apiconnect"
)

var _ apiconnect.LedgerServiceHandler = (*LedgerService)(nil)

// LedgerService exposes the caller's debts and lets payees acknowledge payment.
type LedgerService struct {
	store  storage.Store
	engine *settlement.Engine
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(store storage.Store, engine *settlement.Engine) *LedgerService {
	return &LedgerService{store: store, engine: engine}
}

// ListEntries lists entries where the caller pays or receives, newest first.
func (s *LedgerService) ListEntries(ctx context.Context, req *connect.Request[api.ListEntriesRequest]) (*connect.Response[api.ListEntriesResponse], error) {
	v := viewerFrom(ctx, nil)
	slog.Info("ListEntries request received", "user_id", v.ID)

	if err := v.require("see the ledger"); err != nil {
		return nil, fail("ListEntries", err)
	}

	entries, err := s.store.ListLedgerEntriesForUser(ctx, v.ID)
	if err != nil {
		return nil, fail("ListEntries", err, "user_id", v.ID)
	}

	ids := make([]string, 0, 2*len(entries))
	for _, e := range entries {
		ids = append(ids, e.PayerID, e.PayeeID)
	}
	users, err := loadUsers(ctx, s.store, ids...)
	if err != nil {
		return nil, fail("ListEntries", err)
	}

	out := make([]*api.LedgerEntry, len(entries))
	for i, e := range entries {
		out[i] = toAPILedgerEntry(e, users, v)
	}

	slog.Info("ListEntries successful", "user_id", v.ID, "count", len(out))
	return connect.NewResponse(&api.ListEntriesResponse{Entries: out}), nil
}

// GetSummary totals what the caller owes and is owed over open entries, and
// nets the same entries into balances and simplified debts.
func (s *LedgerService) GetSummary(ctx context.Context, req *connect.Request[api.GetSummaryRequest]) (*connect.Response[api.GetSummaryResponse], error) {
	v := viewerFrom(ctx, nil)
	slog.Info("GetSummary request received", "user_id", v.ID)

	if err := v.require("see the ledger"); err != nil {
		return nil, fail("GetSummary", err)
	}

	entries, err := s.store.ListLedgerEntriesForUser(ctx, v.ID)
	if err != nil {
		return nil, fail("GetSummary", err, "user_id", v.ID)
	}

	summary := calculator.SummarizeLedger(v.ID, entries)
	balances, debts := calculator.CalculateBalances(entries)

	ids := []string{v.ID}
	for _, b := range balances {
		ids = append(ids, b.UserID)
	}
	users, err := loadUsers(ctx, s.store, ids...)
	if err != nil {
		return nil, fail("GetSummary", err)
	}

	resp := &api.GetSummaryResponse{
		Owed:      summary.Owed,
		ToReceive: summary.ToReceive,
		Balances:  make([]api.Balance, len(balances)),
		Debts:     make([]api.Debt, len(debts)),
	}
	for i, b := range balances {
		resp.Balances[i] = api.Balance{
			UserID:      b.UserID,
			DisplayName: users.name(b.UserID),
			NetBalance:  b.NetBalance,
		}
	}
	for i, d := range debts {
		resp.Debts[i] = api.Debt{
			FromUserID: d.From,
			FromName:   users.name(d.From),
			ToUserID:   d.To,
			ToName:     users.name(d.To),
			Amount:     d.Amount,
		}
	}

	slog.Info("GetSummary successful", "user_id", v.ID, "owed", summary.Owed, "to_receive", summary.ToReceive)
	return connect.NewResponse(resp), nil
}

// DeclareReceived marks an entry paid. Only its payee may do this, once.
func (s *LedgerService) DeclareReceived(ctx context.Context, req *connect.Request[api.DeclareReceivedRequest]) (*connect.Response[api.DeclareReceivedResponse], error) {
	v := viewerFrom(ctx, nil)
	slog.Info("DeclareReceived request received", "entry_id", req.Msg.EntryID, "user_id", v.ID)

	entry, err := s.engine.DeclareReceived(ctx, v.ID, req.Msg.EntryID)
	if err != nil {
		return nil, fail("DeclareReceived", err, "entry_id", req.Msg.EntryID, "user_id", v.ID)
	}

	users, err := loadUsers(ctx, s.store, entry.PayerID, entry.PayeeID)
	if err != nil {
		return nil, fail("DeclareReceived", err)
	}

	slog.Info("DeclareReceived successful", "entry_id", entry.ID)
	return connect.NewResponse(&api.DeclareReceivedResponse{Entry: toAPILedgerEntry(*entry, users, v)}), nil
}
