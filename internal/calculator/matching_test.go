package calculator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/pledgeboard/internal/models"
)

func bid(id, bidder, ask string, at time.Time, active bool) models.Bid {
	return models.Bid{ID: id, BidderID: bidder, AskAmount: d(ask), CreatedAt: at, Active: active}
}

func TestLowestActiveBid(t *testing.T) {
	t1 := now
	t2 := now.Add(time.Minute)

	bids := []models.Bid{
		bid("a", "alice", "100", t1, true),
		bid("b", "bob", "80", t2, true),
		bid("c", "carol", "80", t1, true),
		bid("d", "dave", "80", t2.Add(time.Minute), true),
		bid("x", "xavier", "10", t1, false),
	}

	lowest := LowestActiveBid(bids)
	require.NotNil(t, lowest)
	assert.Equal(t, "c", lowest.ID, "earliest of the equal asks wins")

	assert.Nil(t, LowestActiveBid(nil))
	assert.Nil(t, LowestActiveBid([]models.Bid{bid("x", "x", "5", t1, false)}))
}

func TestRequestSettleable(t *testing.T) {
	t1 := now
	t2 := now.Add(time.Minute)
	req := &models.ReverseRequest{
		Status: models.RequestOpen,
		Bids: []models.Bid{
			bid("a", "A", "100", t1, true),
			bid("b", "B", "80", t2, true),
			bid("c", "C", "80", t1, true),
			bid("d", "D", "80", t2.Add(time.Minute), true),
		},
	}

	_, ok := RequestSettleable(req)
	assert.False(t, ok, "no pledges yet")

	req.Pledges = pledges("50", "29.99")
	_, ok = RequestSettleable(req)
	assert.False(t, ok, "one cent short")

	req.Pledges = pledges("50", "30")
	winner, ok := RequestSettleable(req)
	require.True(t, ok)
	assert.Equal(t, "C", winner.BidderID)

	req.Status = models.RequestClosed
	_, ok = RequestSettleable(req)
	assert.False(t, ok, "closed requests never settle again")
}

func TestRequestSettleable_NoActiveBid(t *testing.T) {
	req := &models.ReverseRequest{Status: models.RequestOpen, Pledges: pledges("500")}
	_, ok := RequestSettleable(req)
	assert.False(t, ok)
}

func TestCheckRequestPledge(t *testing.T) {
	req := &models.ReverseRequest{
		Status:  models.RequestOpen,
		Bids:    []models.Bid{bid("a", "A", "100", now, true)},
		Pledges: pledges("70"),
	}

	err := CheckRequestPledge(req, d("31"))
	assert.True(t, errors.Is(err, models.ErrValidation), "overflow is rejected, not truncated")
	assert.NoError(t, CheckRequestPledge(req, d("30")))

	remaining, ok := RequestRemaining(req)
	require.True(t, ok)
	assert.True(t, remaining.Equal(d("30")))

	req.Status = models.RequestClosed
	assert.True(t, errors.Is(CheckRequestPledge(req, d("1")), models.ErrInvalidState))
}

func TestCheckRequestPledge_NoCeilingWithoutBids(t *testing.T) {
	req := &models.ReverseRequest{Status: models.RequestOpen, Pledges: pledges("1000")}
	assert.NoError(t, CheckRequestPledge(req, d("5000")))
	_, ok := RequestRemaining(req)
	assert.False(t, ok)
}

func TestCheckBid(t *testing.T) {
	req := &models.ReverseRequest{Status: models.RequestOpen}
	assert.NoError(t, CheckBid(req, d("42")))
	assert.True(t, errors.Is(CheckBid(req, d("0")), models.ErrValidation))

	req.Status = models.RequestClosed
	assert.True(t, errors.Is(CheckBid(req, d("42")), models.ErrInvalidState))
}

func TestActiveBidOf(t *testing.T) {
	bids := []models.Bid{
		bid("old", "alice", "90", now, false),
		bid("cur", "alice", "70", now, true),
		bid("b", "bob", "60", now, true),
	}
	got := ActiveBidOf(bids, "alice")
	require.NotNil(t, got)
	assert.Equal(t, "cur", got.ID)
	assert.Nil(t, ActiveBidOf(bids, "carol"))
}
