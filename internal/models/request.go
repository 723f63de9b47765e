package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the persisted lifecycle state of a reverse request.
type RequestStatus string

const (
	RequestOpen   RequestStatus = "open"
	RequestClosed RequestStatus = "closed"
)

// ReverseRequest asks for something to be done at the lowest price.
// Bidders post asks; the request closes once pledges cover the lowest one.
type ReverseRequest struct {
	ID          string
	CreatorID   string
	Title       string
	Description string
	Status      RequestStatus
	Audience    Audience

	// Bids holds every bid ever placed, inactive ones included.
	Bids []Bid

	// Pledges are ordered newest first.
	Pledges []Pledge

	// WinnerBidID is set exactly once, when the request closes.
	WinnerBidID string

	CreatedAt time.Time
}

// Bid is a bidder's asking price. A bidder has at most one active bid per
// request; bidding again rewrites it in place.
type Bid struct {
	ID        string
	RequestID string
	BidderID  string
	AskAmount decimal.Decimal
	Active    bool
	CreatedAt time.Time
}
