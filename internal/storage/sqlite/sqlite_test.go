package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/pledgeboard/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store *SQLiteStore, username string) *models.User {
	t.Helper()
	user := models.NewUser(username, username, "hash")
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func createThread(t *testing.T, store *SQLiteStore, creator *models.User, target string) *models.Thread {
	t.Helper()
	thread := &models.Thread{
		CreatorID:    creator.ID,
		Title:        "Bike to Santos",
		Description:  "Leaving at 6am on Sunday",
		TargetAmount: amount(target),
		Deadline:     time.Now().Add(5 * 24 * time.Hour).UTC().Truncate(time.Millisecond),
		Audience:     models.Audience{Mode: models.AudienceOpen},
	}
	require.NoError(t, store.CreateThread(context.Background(), thread))
	return thread
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateUser and lookups", func(t *testing.T) {
		user := createUser(t, store, "ana")

		byName, err := store.GetUserByUsername(ctx, "ana")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)

		byID, err := store.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "ana", byID.Username)
		assert.Equal(t, user.CreatedAt.UnixMilli(), byID.CreatedAt.UnixMilli())
	})

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		err := store.CreateUser(ctx, models.NewUser("ana", "Ana again", "hash"))
		assert.True(t, errors.Is(err, models.ErrConflict), "got %v", err)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		_, err := store.GetUserByUsername(ctx, "nobody")
		assert.True(t, errors.Is(err, models.ErrNotFound))
		_, err = store.GetUserByID(ctx, "nope")
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("GetUsersByIDs omits unknown IDs", func(t *testing.T) {
		rafa := createUser(t, store, "rafa")
		users, err := store.GetUsersByIDs(ctx, []string{rafa.ID, "ghost"})
		require.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Equal(t, "rafa", users[rafa.ID].Username)

		empty, err := store.GetUsersByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, store, "owner")
	guest := createUser(t, store, "guest")

	group := &models.Group{Name: "Climbing crew", OwnerID: owner.ID}
	require.NoError(t, store.CreateGroup(ctx, group))
	require.NotEmpty(t, group.ID)

	ok, err := store.IsAcceptedMember(ctx, group.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok, "owner is an accepted member")

	require.NoError(t, store.AddMembership(ctx, models.Membership{
		GroupID: group.ID, UserID: guest.ID, Status: models.MembershipPending, InvitedBy: owner.ID,
	}))

	ok, err = store.IsAcceptedMember(ctx, group.ID, guest.ID)
	require.NoError(t, err)
	assert.False(t, ok, "pending members do not count")

	err = store.AddMembership(ctx, models.Membership{
		GroupID: group.ID, UserID: guest.ID, Status: models.MembershipPending, InvitedBy: owner.ID,
	})
	assert.True(t, errors.Is(err, models.ErrConflict))

	require.NoError(t, store.AcceptMembership(ctx, group.ID, guest.ID))
	ok, err = store.IsAcceptedMember(ctx, group.ID, guest.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	err = store.AcceptMembership(ctx, group.ID, guest.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound), "nothing pending any more")

	got, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 2)

	groups, err := store.ListGroupsForUser(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Climbing crew", groups[0].Name)

	_, err = store.GetGroup(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestThreads(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	lucas := createUser(t, store, "lucas")
	ana := createUser(t, store, "ana")

	thread := createThread(t, store, lucas, "1000")

	t.Run("pledges come back newest first", func(t *testing.T) {
		base := time.Now().UTC()
		require.NoError(t, store.AddThreadPledge(ctx, &models.Pledge{
			DealType: models.DealThread, DealID: thread.ID, SupporterID: ana.ID,
			Amount: amount("150"), CreatedAt: base.Add(-time.Hour),
		}, nil))
		require.NoError(t, store.AddThreadPledge(ctx, &models.Pledge{
			DealType: models.DealThread, DealID: thread.ID, SupporterID: ana.ID,
			Amount: amount("200.50"), CreatedAt: base,
		}, nil))

		got, err := store.GetThread(ctx, thread.ID)
		require.NoError(t, err)
		require.Len(t, got.Pledges, 2)
		assert.True(t, got.Pledges[0].Amount.Equal(amount("200.50")))
		assert.True(t, got.Pledges[1].Amount.Equal(amount("150")))
		assert.True(t, got.TargetAmount.Equal(amount("1000")))
		assert.Equal(t, thread.Deadline.UnixMilli(), got.Deadline.UnixMilli())
		assert.Equal(t, models.AudienceOpen, got.Audience.Mode)
	})

	t.Run("check sees committed pledges and can veto", func(t *testing.T) {
		errFull := errors.New("full")
		var seen decimal.Decimal
		err := store.AddThreadPledge(ctx, &models.Pledge{
			DealType: models.DealThread, DealID: thread.ID, SupporterID: ana.ID, Amount: amount("700"),
		}, func(current *models.Thread) error {
			for _, p := range current.Pledges {
				seen = seen.Add(p.Amount)
			}
			return errFull
		})
		assert.ErrorIs(t, err, errFull)
		assert.True(t, seen.Equal(amount("350.50")))

		got, err := store.GetThread(ctx, thread.ID)
		require.NoError(t, err)
		assert.Len(t, got.Pledges, 2, "vetoed pledge is not written")

		err = store.AddThreadPledge(ctx, &models.Pledge{
			DealType: models.DealThread, DealID: "missing", SupporterID: ana.ID, Amount: amount("1"),
		}, nil)
		assert.True(t, errors.Is(err, models.ErrNotFound))

		err = store.AddThreadPledge(ctx, &models.Pledge{
			DealType: models.DealRequest, DealID: thread.ID, SupporterID: ana.ID, Amount: amount("1"),
		}, nil)
		assert.True(t, errors.Is(err, models.ErrValidation))
	})

	t.Run("CommitThreadCurrent is one-shot", func(t *testing.T) {
		require.NoError(t, store.CommitThreadCurrent(ctx, thread.ID, amount("350.50")))
		err := store.CommitThreadCurrent(ctx, thread.ID, amount("350.50"))
		assert.True(t, errors.Is(err, models.ErrInvalidState))

		got, err := store.GetThread(ctx, thread.ID)
		require.NoError(t, err)
		assert.True(t, got.CommittedCurrent)
		assert.True(t, got.CommittedAmount.Equal(amount("350.50")))

		err = store.CommitThreadCurrent(ctx, "missing", amount("1"))
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("specific audience keeps its targets", func(t *testing.T) {
		specific := &models.Thread{
			CreatorID: lucas.ID, Title: "t", Description: "d", TargetAmount: amount("10"),
			Deadline: time.Now().Add(time.Hour),
			Audience: models.Audience{Mode: models.AudienceSpecific, TargetUserIDs: []string{ana.ID}},
		}
		require.NoError(t, store.CreateThread(ctx, specific))
		got, err := store.GetThread(ctx, specific.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{ana.ID}, got.Audience.TargetUserIDs)
	})

	t.Run("ListThreads returns newest first", func(t *testing.T) {
		threads, err := store.ListThreads(ctx)
		require.NoError(t, err)
		require.Len(t, threads, 2)
		assert.False(t, threads[0].CreatedAt.Before(threads[1].CreatedAt))
	})
}

func TestReverseRequestBids(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	creator := createUser(t, store, "creator")
	bidder := createUser(t, store, "bidder")

	req := &models.ReverseRequest{
		CreatorID: creator.ID, Title: "Fix my bike", Description: "Flat tyre",
		Audience: models.Audience{Mode: models.AudienceOpen},
	}
	require.NoError(t, store.CreateRequest(ctx, req))
	assert.Equal(t, models.RequestOpen, req.Status)

	first := &models.Bid{RequestID: req.ID, BidderID: bidder.ID, AskAmount: amount("90")}
	replaced, err := store.UpsertActiveBid(ctx, first, nil)
	require.NoError(t, err)
	assert.False(t, replaced)

	second := &models.Bid{RequestID: req.ID, BidderID: bidder.ID, AskAmount: amount("70"), CreatedAt: time.Now().Add(time.Minute)}
	replaced, err = store.UpsertActiveBid(ctx, second, nil)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, first.ID, second.ID, "re-bidding rewrites the same bid")

	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, got.Bids, 1)
	assert.True(t, got.Bids[0].Active)
	assert.True(t, got.Bids[0].AskAmount.Equal(amount("70")))
	assert.Equal(t, second.CreatedAt.UnixMilli(), got.Bids[0].CreatedAt.UnixMilli())

	errClosed := errors.New("closed")
	_, err = store.UpsertActiveBid(ctx,
		&models.Bid{RequestID: req.ID, BidderID: bidder.ID, AskAmount: amount("10")},
		func(current *models.ReverseRequest) error {
			assert.Len(t, current.Bids, 1)
			return errClosed
		})
	assert.ErrorIs(t, err, errClosed)

	got, err = store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, got.Bids[0].AskAmount.Equal(amount("70")), "vetoed bid leaves the active ask alone")
}

func TestSettleDeal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	lucas := createUser(t, store, "lucas")
	ana := createUser(t, store, "ana")
	thread := createThread(t, store, lucas, "100")

	pledge := &models.Pledge{DealType: models.DealThread, DealID: thread.ID, SupporterID: ana.ID, Amount: amount("100")}
	require.NoError(t, store.AddThreadPledge(ctx, pledge, nil))

	settlement := func() *models.Settlement {
		return &models.Settlement{
			DealType: models.DealThread,
			DealID:   thread.ID,
			PayeeID:  lucas.ID,
			Entries: []models.LedgerEntry{{
				PledgeID: pledge.ID, PayerID: ana.ID, PayeeID: lucas.ID, Amount: pledge.Amount,
			}},
		}
	}

	settled, err := store.SettleDeal(ctx, settlement())
	require.NoError(t, err)
	assert.True(t, settled)

	settled, err = store.SettleDeal(ctx, settlement())
	require.NoError(t, err)
	assert.False(t, settled, "second settlement is a no-op")

	lock, err := store.GetDealLock(ctx, models.DealThread, thread.ID)
	require.NoError(t, err)
	require.NotNil(t, lock)

	entries, err := store.ListLedgerEntriesForDeal(ctx, models.DealThread, thread.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LedgerOpen, entries[0].Status)
	assert.True(t, entries[0].Amount.Equal(amount("100")))

	forAna, err := store.ListLedgerEntriesForUser(ctx, ana.ID)
	require.NoError(t, err)
	assert.Len(t, forAna, 1)

	t.Run("DeclareReceived is one-shot", func(t *testing.T) {
		require.NoError(t, store.DeclareReceived(ctx, entries[0].ID, time.Now()))
		err := store.DeclareReceived(ctx, entries[0].ID, time.Now())
		assert.True(t, errors.Is(err, models.ErrInvalidState))

		got, err := store.GetLedgerEntry(ctx, entries[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.LedgerReceivedDeclared, got.Status)
		assert.NotNil(t, got.DeclaredAt)

		err = store.DeclareReceived(ctx, "missing", time.Now())
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("DeleteThread removes lock and ledger", func(t *testing.T) {
		require.NoError(t, store.DeleteThread(ctx, thread.ID))

		lock, err := store.GetDealLock(ctx, models.DealThread, thread.ID)
		require.NoError(t, err)
		assert.Nil(t, lock)

		entries, err := store.ListLedgerEntriesForDeal(ctx, models.DealThread, thread.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)

		_, err = store.GetThread(ctx, thread.ID)
		assert.True(t, errors.Is(err, models.ErrNotFound))

		err = store.DeleteThread(ctx, thread.ID)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})
}

func TestSettleDeal_RequestRollsBackWhenNotOpen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	creator := createUser(t, store, "creator")
	bidder := createUser(t, store, "bidder")
	supporter := createUser(t, store, "supporter")

	req := &models.ReverseRequest{CreatorID: creator.ID, Title: "t", Description: "d", Audience: models.Audience{Mode: models.AudienceOpen}}
	require.NoError(t, store.CreateRequest(ctx, req))
	bid := &models.Bid{RequestID: req.ID, BidderID: bidder.ID, AskAmount: amount("50")}
	_, err := store.UpsertActiveBid(ctx, bid, nil)
	require.NoError(t, err)
	pledge := &models.Pledge{DealType: models.DealRequest, DealID: req.ID, SupporterID: supporter.ID, Amount: amount("50")}
	require.NoError(t, store.AddRequestPledge(ctx, pledge, func(current *models.ReverseRequest) error {
		assert.Len(t, current.Bids, 1)
		return nil
	}))

	settlement := &models.Settlement{
		DealType: models.DealRequest, DealID: req.ID, PayeeID: bidder.ID, WinnerBidID: bid.ID,
		Entries: []models.LedgerEntry{{PledgeID: pledge.ID, PayerID: supporter.ID, PayeeID: bidder.ID, Amount: pledge.Amount}},
	}
	settled, err := store.SettleDeal(ctx, settlement)
	require.NoError(t, err)
	require.True(t, settled)

	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestClosed, got.Status)
	assert.Equal(t, bid.ID, got.WinnerBidID)

	// Simulate a half-finished state: lock gone but request already closed.
	_, err = store.db.ExecContext(ctx, "DELETE FROM deal_locks")
	require.NoError(t, err)

	_, err = store.SettleDeal(ctx, settlement)
	assert.True(t, errors.Is(err, models.ErrInvalidState))

	lock, err := store.GetDealLock(ctx, models.DealRequest, req.ID)
	require.NoError(t, err)
	assert.Nil(t, lock, "failed settlement must not leave a lock behind")

	entries, err := store.ListLedgerEntriesForDeal(ctx, models.DealRequest, req.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the rolled-back attempt added nothing")
}
