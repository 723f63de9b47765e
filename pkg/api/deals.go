package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Audience says who may pledge or bid. Mode is "open", "group" or "specific".
// GroupID is required for "group"; TargetUserIDs is required for "specific".
type Audience struct {
	Mode          string   `json:"mode"`
	GroupID       string   `json:"group_id,omitempty"`
	TargetUserIDs []string `json:"target_user_ids,omitempty"`
}

type Pledge struct {
	ID            string          `json:"id"`
	SupporterID   string          `json:"supporter_id"`
	SupporterName string          `json:"supporter_name"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Thread is a thread as seen by one viewer. Status, totals and the Can*
// flags are derived at read time.
type Thread struct {
	ID               string          `json:"id"`
	CreatorID        string          `json:"creator_id"`
	CreatorName      string          `json:"creator_name"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	TargetAmount     decimal.Decimal `json:"target_amount"`
	Deadline         time.Time       `json:"deadline"`
	Audience         Audience        `json:"audience"`
	Status           string          `json:"status"`
	Pledged          decimal.Decimal `json:"pledged"`
	Remaining        decimal.Decimal `json:"remaining"`
	CommittedCurrent bool            `json:"committed_current"`
	CommittedAmount  decimal.Decimal `json:"committed_amount"`
	Settled          bool            `json:"settled"`
	Pledges          []Pledge        `json:"pledges"`
	CanPledge        bool            `json:"can_pledge"`
	CanCommit        bool            `json:"can_commit"`
	CanDelete        bool            `json:"can_delete"`
	CreatedAt        time.Time       `json:"created_at"`
}

// CreateThreadRequest creates a thread. Deadline is either a date
// (YYYY-MM-DD, meaning the end of that day in UTC) or an RFC 3339 instant.
type CreateThreadRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Deadline     string          `json:"deadline"`
	Audience     Audience        `json:"audience"`
}

type CreateThreadResponse struct {
	Thread *Thread `json:"thread"`
}

type ListThreadsRequest struct{}

type ListThreadsResponse struct {
	Threads []*Thread `json:"threads"`
}

type GetThreadRequest struct {
	ThreadID string `json:"thread_id"`
}

type GetThreadResponse struct {
	Thread *Thread `json:"thread"`
}

type PledgeThreadRequest struct {
	ThreadID string          `json:"thread_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type PledgeThreadResponse struct {
	Thread  *Thread `json:"thread"`
	Settled bool    `json:"settled"`
}

type CommitCurrentRequest struct {
	ThreadID string `json:"thread_id"`
}

type CommitCurrentResponse struct {
	Thread  *Thread `json:"thread"`
	Settled bool    `json:"settled"`
}

type SettleThreadRequest struct {
	ThreadID string `json:"thread_id"`
}

type SettleThreadResponse struct {
	Thread  *Thread `json:"thread"`
	Settled bool    `json:"settled"`
}

type DeleteThreadRequest struct {
	ThreadID string `json:"thread_id"`
}

type DeleteThreadResponse struct{}

type Bid struct {
	ID         string          `json:"id"`
	BidderID   string          `json:"bidder_id"`
	BidderName string          `json:"bidder_name"`
	AskAmount  decimal.Decimal `json:"ask_amount"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ReverseRequest is a reverse request as seen by one viewer. Remaining is
// nil while no bid is active.
type ReverseRequest struct {
	ID          string           `json:"id"`
	CreatorID   string           `json:"creator_id"`
	CreatorName string           `json:"creator_name"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	Audience    Audience         `json:"audience"`
	Bids        []Bid            `json:"bids"`
	LowestBid   *Bid             `json:"lowest_bid,omitempty"`
	MyBid       *Bid             `json:"my_bid,omitempty"`
	Pledges     []Pledge         `json:"pledges"`
	Pledged     decimal.Decimal  `json:"pledged"`
	Remaining   *decimal.Decimal `json:"remaining,omitempty"`
	WinnerBidID string           `json:"winner_bid_id,omitempty"`
	Settled     bool             `json:"settled"`
	CanBid      bool             `json:"can_bid"`
	CanPledge   bool             `json:"can_pledge"`
	CanDelete   bool             `json:"can_delete"`
	CreatedAt   time.Time        `json:"created_at"`
}

type CreateReverseRequestRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Audience    Audience `json:"audience"`
}

type CreateReverseRequestResponse struct {
	Request *ReverseRequest `json:"request"`
}

type ListReverseRequestsRequest struct{}

type ListReverseRequestsResponse struct {
	Requests []*ReverseRequest `json:"requests"`
}

type GetReverseRequestRequest struct {
	RequestID string `json:"request_id"`
}

type GetReverseRequestResponse struct {
	Request *ReverseRequest `json:"request"`
}

type PlaceBidRequest struct {
	RequestID string          `json:"request_id"`
	AskAmount decimal.Decimal `json:"ask_amount"`
}

type PlaceBidResponse struct {
	Request  *ReverseRequest `json:"request"`
	Replaced bool            `json:"replaced"`
	Settled  bool            `json:"settled"`
}

type PledgeReverseRequestRequest struct {
	RequestID string          `json:"request_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type PledgeReverseRequestResponse struct {
	Request *ReverseRequest `json:"request"`
	Settled bool            `json:"settled"`
}

type SettleReverseRequestRequest struct {
	RequestID string `json:"request_id"`
}

type SettleReverseRequestResponse struct {
	Request *ReverseRequest `json:"request"`
	Settled bool            `json:"settled"`
}

type DeleteReverseRequestRequest struct {
	RequestID string `json:"request_id"`
}

type DeleteReverseRequestResponse struct{}
