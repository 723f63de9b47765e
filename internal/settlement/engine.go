// Package settlement decides when a deal is done and who owes whom.
//
// Every participant action (pledge, bid, owner commit) runs inside a per-deal
// exclusive region and is followed by a settlement attempt on the same deal.
// A settlement attempt re-derives the deal's state from its stored pledges and
// bids, and if the deal has been struck and not yet locked, writes one ledger
// entry per pledge plus the deal lock in a single store transaction.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/moby/locker"
	"github.com/shopspring/decimal"

	"github.com/mmynk/pledgeboard/internal/audience"
	"github.com/mmynk/pledgeboard/internal/calculator"
	"github.com/mmynk/pledgeboard/internal/metrics"
	"github.com/mmynk/pledgeboard/internal/models"
	"github.com/mmynk/pledgeboard/internal/storage"
)

// Store is the persistence the engine needs.
type Store interface {
	storage.DealStore
	storage.LedgerStore
}

// Engine applies participant actions to deals and settles them.
type Engine struct {
	store   Store
	gate    *audience.Gate
	locks   *locker.Locker
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's notion of the current time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics makes the engine record pledges, bids and settlements.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a settlement engine.
func NewEngine(store Store, gate *audience.Gate, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		gate:  gate,
		locks: locker.New(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Gate returns the audience gate the engine checks participants against.
func (e *Engine) Gate() *audience.Gate {
	return e.gate
}

// PledgeResult is the outcome of an accepted pledge.
type PledgeResult struct {
	Pledge *models.Pledge

	// Settled is true when this pledge struck the deal.
	Settled bool
}

// BidResult is the outcome of an accepted bid.
type BidResult struct {
	Bid *models.Bid

	// Replaced is true when the bidder's earlier active bid was rewritten.
	Replaced bool
	Settled  bool
}

func dealKey(dealType models.DealType, dealID string) string {
	return string(dealType) + ":" + dealID
}

// lockDeal serialises actions on one deal within this process. It keeps
// same-deal requests from queueing on the database write lock and from
// repeating settlement work; the store transactions guard across processes.
func (e *Engine) lockDeal(dealType models.DealType, dealID string) func() {
	key := dealKey(dealType, dealID)
	e.locks.Lock(key)
	return func() {
		// Unlock only fails for a key that is not held.
		_ = e.locks.Unlock(key)
	}
}

func requireActor(actorID, action string) error {
	if actorID == "" {
		return fmt.Errorf("%w: sign in to %s", models.ErrPermissionDenied, action)
	}
	return nil
}

func (e *Engine) checkAudience(ctx context.Context, a models.Audience, actorID, action string) error {
	ok, err := e.gate.IsAllowed(ctx, a, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not in this deal's audience, cannot %s", models.ErrPermissionDenied, action)
	}
	return nil
}

// PledgeThread adds a pledge to a thread and settles the thread if the pledge
// reached its target.
func (e *Engine) PledgeThread(ctx context.Context, actorID, threadID string, amount decimal.Decimal) (*PledgeResult, error) {
	if err := requireActor(actorID, "pledge"); err != nil {
		return nil, err
	}

	unlock := e.lockDeal(models.DealThread, threadID)
	defer unlock()

	thread, err := e.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := e.checkAudience(ctx, thread.Audience, actorID, "pledge"); err != nil {
		return nil, err
	}
	now := e.now()
	pledge := &models.Pledge{
		DealType:    models.DealThread,
		DealID:      threadID,
		SupporterID: actorID,
		Amount:      amount,
		CreatedAt:   now,
	}
	// The capacity check runs against the thread as read in the insert's
	// transaction, so engines in other processes cannot push it past target.
	err = e.store.AddThreadPledge(ctx, pledge, func(current *models.Thread) error {
		return calculator.CheckThreadPledge(current, amount, now)
	})
	if err != nil {
		return nil, err
	}
	e.metrics.ObservePledge(string(models.DealThread))

	settled, err := e.settleThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return &PledgeResult{Pledge: pledge, Settled: settled}, nil
}

// CommitCurrent lets a thread's creator lock in whatever has been pledged so
// far, which makes the thread settleable.
func (e *Engine) CommitCurrent(ctx context.Context, actorID, threadID string) (bool, error) {
	if err := requireActor(actorID, "commit"); err != nil {
		return false, err
	}

	unlock := e.lockDeal(models.DealThread, threadID)
	defer unlock()

	thread, err := e.store.GetThread(ctx, threadID)
	if err != nil {
		return false, err
	}
	if thread.CreatorID != actorID {
		return false, fmt.Errorf("%w: only the thread creator can commit", models.ErrPermissionDenied)
	}
	if err := calculator.CheckCommitCurrent(thread, e.now()); err != nil {
		return false, err
	}
	if err := e.store.CommitThreadCurrent(ctx, threadID, calculator.PledgedTotal(thread.Pledges)); err != nil {
		return false, err
	}

	return e.settleThread(ctx, threadID)
}

// PledgeRequest adds a pledge to a reverse request and closes the request if
// pledges now cover the lowest active ask.
func (e *Engine) PledgeRequest(ctx context.Context, actorID, requestID string, amount decimal.Decimal) (*PledgeResult, error) {
	if err := requireActor(actorID, "pledge"); err != nil {
		return nil, err
	}

	unlock := e.lockDeal(models.DealRequest, requestID)
	defer unlock()

	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.checkAudience(ctx, req.Audience, actorID, "pledge"); err != nil {
		return nil, err
	}

	pledge := &models.Pledge{
		DealType:    models.DealRequest,
		DealID:      requestID,
		SupporterID: actorID,
		Amount:      amount,
		CreatedAt:   e.now(),
	}
	err = e.store.AddRequestPledge(ctx, pledge, func(current *models.ReverseRequest) error {
		return calculator.CheckRequestPledge(current, amount)
	})
	if err != nil {
		return nil, err
	}
	e.metrics.ObservePledge(string(models.DealRequest))

	settled, err := e.settleRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &PledgeResult{Pledge: pledge, Settled: settled}, nil
}

// PlaceBid posts or replaces the actor's ask on a reverse request. A lower ask
// can close the request immediately if pledges already cover it.
func (e *Engine) PlaceBid(ctx context.Context, actorID, requestID string, ask decimal.Decimal) (*BidResult, error) {
	if err := requireActor(actorID, "bid"); err != nil {
		return nil, err
	}

	unlock := e.lockDeal(models.DealRequest, requestID)
	defer unlock()

	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.checkAudience(ctx, req.Audience, actorID, "bid"); err != nil {
		return nil, err
	}

	bid := &models.Bid{
		RequestID: requestID,
		BidderID:  actorID,
		AskAmount: ask,
		CreatedAt: e.now(),
	}
	replaced, err := e.store.UpsertActiveBid(ctx, bid, func(current *models.ReverseRequest) error {
		return calculator.CheckBid(current, ask)
	})
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveBid(replaced)

	settled, err := e.settleRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &BidResult{Bid: bid, Replaced: replaced, Settled: settled}, nil
}

// SettleThread re-runs settlement on a thread. It is a no-op when the thread
// is not settleable or already settled.
func (e *Engine) SettleThread(ctx context.Context, threadID string) (bool, error) {
	unlock := e.lockDeal(models.DealThread, threadID)
	defer unlock()
	return e.settleThread(ctx, threadID)
}

// SettleRequest re-runs settlement on a reverse request.
func (e *Engine) SettleRequest(ctx context.Context, requestID string) (bool, error) {
	unlock := e.lockDeal(models.DealRequest, requestID)
	defer unlock()
	return e.settleRequest(ctx, requestID)
}

// settleThread must be called with the thread's deal lock held.
func (e *Engine) settleThread(ctx context.Context, threadID string) (bool, error) {
	thread, err := e.store.GetThread(ctx, threadID)
	if err != nil {
		return false, err
	}
	if !calculator.ThreadSettleable(thread, e.now()) {
		return false, nil
	}
	return e.settle(ctx, &models.Settlement{
		DealType: models.DealThread,
		DealID:   thread.ID,
		PayeeID:  thread.CreatorID,
	}, thread.Pledges)
}

// settleRequest must be called with the request's deal lock held.
func (e *Engine) settleRequest(ctx context.Context, requestID string) (bool, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return false, err
	}
	winner, ok := calculator.RequestSettleable(req)
	if !ok {
		return false, nil
	}
	return e.settle(ctx, &models.Settlement{
		DealType:    models.DealRequest,
		DealID:      req.ID,
		PayeeID:     winner.BidderID,
		WinnerBidID: winner.ID,
	}, req.Pledges)
}

func (e *Engine) settle(ctx context.Context, s *models.Settlement, pledges []models.Pledge) (bool, error) {
	lock, err := e.store.GetDealLock(ctx, s.DealType, s.DealID)
	if err != nil {
		return false, err
	}
	if lock != nil {
		return false, nil
	}

	s.SettledAt = e.now()
	s.Entries = ledgerEntries(s, pledges)

	settled, err := e.store.SettleDeal(ctx, s)
	if err != nil {
		e.metrics.ObserveSettlementFailure(string(s.DealType))
		slog.Error("Settlement failed",
			"deal_type", s.DealType,
			"deal_id", s.DealID,
			"error", err,
		)
		return false, fmt.Errorf("%w: %s %s: %w", models.ErrSettlementFailed, s.DealType, s.DealID, err)
	}
	if !settled {
		return false, nil
	}

	e.metrics.ObserveSettlement(string(s.DealType), len(s.Entries))
	slog.Info("Deal settled",
		"deal_type", s.DealType,
		"deal_id", s.DealID,
		"payee_id", s.PayeeID,
		"entries", len(s.Entries),
	)
	return true, nil
}

// ledgerEntries turns pledges into debts owed to the settlement's payee,
// oldest pledge first. Non-positive pledges are skipped.
func ledgerEntries(s *models.Settlement, pledges []models.Pledge) []models.LedgerEntry {
	entries := make([]models.LedgerEntry, 0, len(pledges))
	for i := len(pledges) - 1; i >= 0; i-- {
		p := pledges[i]
		if !p.Amount.IsPositive() {
			continue
		}
		entries = append(entries, models.LedgerEntry{
			DealType:  s.DealType,
			DealID:    s.DealID,
			PledgeID:  p.ID,
			PayerID:   p.SupporterID,
			PayeeID:   s.PayeeID,
			Amount:    p.Amount,
			Status:    models.LedgerOpen,
			CreatedAt: s.SettledAt,
		})
	}
	return entries
}

// DeclareReceived records that the payee of a ledger entry got paid.
func (e *Engine) DeclareReceived(ctx context.Context, actorID, entryID string) (*models.LedgerEntry, error) {
	if err := requireActor(actorID, "declare receipt"); err != nil {
		return nil, err
	}

	entry, err := e.store.GetLedgerEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.PayeeID != actorID {
		return nil, fmt.Errorf("%w: only the payee can declare receipt", models.ErrPermissionDenied)
	}
	if entry.Status != models.LedgerOpen {
		return nil, fmt.Errorf("%w: entry already %s", models.ErrInvalidState, entry.Status)
	}

	if err := e.store.DeclareReceived(ctx, entryID, e.now()); err != nil {
		return nil, err
	}
	e.metrics.ObserveDeclaration()

	return e.store.GetLedgerEntry(ctx, entryID)
}

// DeleteThread removes a thread, its pledges and any settlement it produced.
// Only the creator or an administrator may delete.
func (e *Engine) DeleteThread(ctx context.Context, actorID string, isAdmin bool, threadID string) error {
	if err := requireActor(actorID, "delete"); err != nil {
		return err
	}

	unlock := e.lockDeal(models.DealThread, threadID)
	defer unlock()

	thread, err := e.store.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	if thread.CreatorID != actorID && !isAdmin {
		return fmt.Errorf("%w: only the creator or an admin can delete this thread", models.ErrPermissionDenied)
	}
	return e.store.DeleteThread(ctx, threadID)
}

// DeleteRequest removes a reverse request with its bids, pledges and settlement.
func (e *Engine) DeleteRequest(ctx context.Context, actorID string, isAdmin bool, requestID string) error {
	if err := requireActor(actorID, "delete"); err != nil {
		return err
	}

	unlock := e.lockDeal(models.DealRequest, requestID)
	defer unlock()

	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.CreatorID != actorID && !isAdmin {
		return fmt.Errorf("%w: only the creator or an admin can delete this request", models.ErrPermissionDenied)
	}
	return e.store.DeleteRequest(ctx, requestID)
}
