package service

import (
	"context"
	"time"

	"github.com/mmynk/pledgeboard/internal/audience"
	"github.com/mmynk/pledgeboard/internal/calculator"
	"github.com/mmynk/pledgeboard/internal/models"
	"github.com/mmynk/pledgeboard/internal/storage"
	"github.com/mmynk/pledgeboard/pkg/api"
)

// userDirectory resolves user IDs to display names for one response.
type userDirectory map[string]*models.User

func loadUsers(ctx context.Context, store storage.UserStore, ids ...string) (userDirectory, error) {
	users, err := store.GetUsersByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	return userDirectory(users), nil
}

func (d userDirectory) name(id string) string {
	if u, ok := d[id]; ok {
		return u.DisplayName
	}
	return id
}

func toAPIUser(u *models.User, isAdmin bool) *api.User {
	return &api.User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		IsAdmin:     isAdmin,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPIAudience(a models.Audience) api.Audience {
	return api.Audience{
		Mode:          string(a.Mode),
		GroupID:       a.GroupID,
		TargetUserIDs: a.TargetUserIDs,
	}
}

func toAPIPledges(pledges []models.Pledge, users userDirectory) []api.Pledge {
	out := make([]api.Pledge, len(pledges))
	for i, p := range pledges {
		out[i] = api.Pledge{
			ID:            p.ID,
			SupporterID:   p.SupporterID,
			SupporterName: users.name(p.SupporterID),
			Amount:        p.Amount,
			CreatedAt:     p.CreatedAt,
		}
	}
	return out
}

func toAPIBid(b *models.Bid, users userDirectory) *api.Bid {
	if b == nil {
		return nil
	}
	return &api.Bid{
		ID:         b.ID,
		BidderID:   b.BidderID,
		BidderName: users.name(b.BidderID),
		AskAmount:  b.AskAmount,
		Active:     b.Active,
		CreatedAt:  b.CreatedAt,
	}
}

// dealViews builds per-viewer read models. Everything is derived from the
// stored pledges and bids at call time.
type dealViews struct {
	store storage.Store
	gate  *audience.Gate
}

func (d dealViews) allowed(ctx context.Context, a models.Audience, v viewer) (bool, error) {
	if v.ID == "" {
		return false, nil
	}
	return d.gate.IsAllowed(ctx, a, v.ID)
}

func (d dealViews) settled(ctx context.Context, dealType models.DealType, dealID string) (bool, error) {
	lock, err := d.store.GetDealLock(ctx, dealType, dealID)
	if err != nil {
		return false, err
	}
	return lock != nil, nil
}

func (d dealViews) thread(ctx context.Context, t *models.Thread, v viewer, now time.Time) (*api.Thread, error) {
	settled, err := d.settled(ctx, models.DealThread, t.ID)
	if err != nil {
		return nil, err
	}
	allowed, err := d.allowed(ctx, t.Audience, v)
	if err != nil {
		return nil, err
	}

	ids := []string{t.CreatorID}
	for _, p := range t.Pledges {
		ids = append(ids, p.SupporterID)
	}
	users, err := loadUsers(ctx, d.store, ids...)
	if err != nil {
		return nil, err
	}

	status := calculator.ThreadStatus(t, now)
	isCreator := v.ID != "" && v.ID == t.CreatorID

	return &api.Thread{
		ID:               t.ID,
		CreatorID:        t.CreatorID,
		CreatorName:      users.name(t.CreatorID),
		Title:            t.Title,
		Description:      t.Description,
		TargetAmount:     t.TargetAmount,
		Deadline:         t.Deadline,
		Audience:         toAPIAudience(t.Audience),
		Status:           string(status),
		Pledged:          calculator.PledgedTotal(t.Pledges),
		Remaining:        calculator.ThreadRemaining(t),
		CommittedCurrent: t.CommittedCurrent,
		CommittedAmount:  t.CommittedAmount,
		Settled:          settled,
		Pledges:          toAPIPledges(t.Pledges, users),
		CanPledge:        allowed && status == models.ThreadOpen,
		CanCommit:        isCreator && calculator.CheckCommitCurrent(t, now) == nil,
		CanDelete:        isCreator || v.IsAdmin,
		CreatedAt:        t.CreatedAt,
	}, nil
}

func (d dealViews) request(ctx context.Context, r *models.ReverseRequest, v viewer) (*api.ReverseRequest, error) {
	settled, err := d.settled(ctx, models.DealRequest, r.ID)
	if err != nil {
		return nil, err
	}
	allowed, err := d.allowed(ctx, r.Audience, v)
	if err != nil {
		return nil, err
	}

	ids := []string{r.CreatorID}
	for _, b := range r.Bids {
		ids = append(ids, b.BidderID)
	}
	for _, p := range r.Pledges {
		ids = append(ids, p.SupporterID)
	}
	users, err := loadUsers(ctx, d.store, ids...)
	if err != nil {
		return nil, err
	}

	bids := make([]api.Bid, len(r.Bids))
	for i := range r.Bids {
		bids[i] = *toAPIBid(&r.Bids[i], users)
	}

	open := r.Status == models.RequestOpen
	view := &api.ReverseRequest{
		ID:          r.ID,
		CreatorID:   r.CreatorID,
		CreatorName: users.name(r.CreatorID),
		Title:       r.Title,
		Description: r.Description,
		Status:      string(r.Status),
		Audience:    toAPIAudience(r.Audience),
		Bids:        bids,
		LowestBid:   toAPIBid(calculator.LowestActiveBid(r.Bids), users),
		Pledges:     toAPIPledges(r.Pledges, users),
		Pledged:     calculator.PledgedTotal(r.Pledges),
		WinnerBidID: r.WinnerBidID,
		Settled:     settled,
		CanBid:      allowed && open,
		CanPledge:   allowed && open,
		CanDelete:   (v.ID != "" && v.ID == r.CreatorID) || v.IsAdmin,
		CreatedAt:   r.CreatedAt,
	}
	if v.ID != "" {
		view.MyBid = toAPIBid(calculator.ActiveBidOf(r.Bids, v.ID), users)
	}
	if remaining, ok := calculator.RequestRemaining(r); ok {
		view.Remaining = &remaining
		view.CanPledge = view.CanPledge && remaining.IsPositive()
	}
	return view, nil
}

func toAPILedgerEntry(e models.LedgerEntry, users userDirectory, v viewer) *api.LedgerEntry {
	return &api.LedgerEntry{
		ID:         e.ID,
		DealType:   string(e.DealType),
		DealID:     e.DealID,
		PledgeID:   e.PledgeID,
		PayerID:    e.PayerID,
		PayerName:  users.name(e.PayerID),
		PayeeID:    e.PayeeID,
		PayeeName:  users.name(e.PayeeID),
		Amount:     e.Amount,
		Status:     string(e.Status),
		CreatedAt:  e.CreatedAt,
		DeclaredAt: e.DeclaredAt,
		CanDeclare: v.ID != "" && v.ID == e.PayeeID && e.Status == models.LedgerOpen,
	}
}

func toAPIGroup(g *models.Group, users userDirectory) *api.Group {
	members := make([]api.GroupMember, len(g.Members))
	for i, m := range g.Members {
		member := api.GroupMember{
			UserID:      m.UserID,
			DisplayName: users.name(m.UserID),
			Status:      string(m.Status),
		}
		if u, ok := users[m.UserID]; ok {
			member.Username = u.Username
		}
		members[i] = member
	}
	return &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		OwnerID:   g.OwnerID,
		Members:   members,
		CreatedAt: g.CreatedAt,
	}
}
