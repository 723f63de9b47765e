// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/pledgeboard/internal/models"
)

// UserStore persists registered users.
type UserStore interface {
	// CreateUser inserts a user. Returns models.ErrConflict if the username is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername returns models.ErrNotFound if no such user exists.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID returns models.ErrNotFound if no such user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns a map of user ID to user; unknown IDs are omitted.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// GroupStore persists groups and memberships.
type GroupStore interface {
	// CreateGroup inserts the group and an accepted membership for its owner.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsForUser returns groups where the user has any membership.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// AddMembership returns models.ErrConflict if the user already has one.
	AddMembership(ctx context.Context, m models.Membership) error

	// AcceptMembership flips a pending membership to accepted.
	// Returns models.ErrNotFound if there is no pending membership.
	AcceptMembership(ctx context.Context, groupID, userID string) error

	IsAcceptedMember(ctx context.Context, groupID, userID string) (bool, error)
}

// DealStore persists threads, reverse requests, their pledges and bids.
// Reads always return the full pledge and bid sets; nothing is aggregated
// in SQL.
type DealStore interface {
	CreateThread(ctx context.Context, thread *models.Thread) error
	GetThread(ctx context.Context, threadID string) (*models.Thread, error)

	// ListThreads returns all threads, newest first.
	ListThreads(ctx context.Context) ([]*models.Thread, error)

	// CommitThreadCurrent sets the one-shot committed flag and amount.
	// Returns models.ErrInvalidState if the flag is already set.
	CommitThreadCurrent(ctx context.Context, threadID string, amount decimal.Decimal) error

	// DeleteThread removes the thread with its pledges, deal lock and ledger entries.
	DeleteThread(ctx context.Context, threadID string) error

	CreateRequest(ctx context.Context, req *models.ReverseRequest) error
	GetRequest(ctx context.Context, requestID string) (*models.ReverseRequest, error)

	// ListRequests returns all reverse requests, newest first.
	ListRequests(ctx context.Context) ([]*models.ReverseRequest, error)

	// DeleteRequest removes the request with its bids, pledges, deal lock and ledger entries.
	DeleteRequest(ctx context.Context, requestID string) error

	// AddThreadPledge re-reads the thread inside the write transaction, passes
	// it to check (if non-nil) and inserts the pledge only when check returns
	// nil. The check and the insert are atomic with respect to other writers,
	// including other processes sharing the database.
	AddThreadPledge(ctx context.Context, pledge *models.Pledge, check func(*models.Thread) error) error

	// AddRequestPledge is AddThreadPledge for reverse requests.
	AddRequestPledge(ctx context.Context, pledge *models.Pledge, check func(*models.ReverseRequest) error) error

	// UpsertActiveBid rewrites the bidder's active bid in place, or inserts a
	// new one, after check (if non-nil) accepts the request as read in the
	// same transaction. bid.ID is set to the stored bid's ID. replaced reports
	// which of the two happened.
	UpsertActiveBid(ctx context.Context, bid *models.Bid, check func(*models.ReverseRequest) error) (replaced bool, err error)
}

// LedgerStore persists deal locks and ledger entries.
type LedgerStore interface {
	// SettleDeal writes the settlement's ledger entries and then its deal lock
	// in a single transaction, closing the request first for reverse requests.
	// If the lock already exists nothing is written and settled is false.
	SettleDeal(ctx context.Context, settlement *models.Settlement) (settled bool, err error)

	// GetDealLock returns nil when the deal has not been settled.
	GetDealLock(ctx context.Context, dealType models.DealType, dealID string) (*models.DealLock, error)

	GetLedgerEntry(ctx context.Context, entryID string) (*models.LedgerEntry, error)

	// ListLedgerEntriesForUser returns entries where the user is payer or payee, newest first.
	ListLedgerEntriesForUser(ctx context.Context, userID string) ([]models.LedgerEntry, error)

	ListLedgerEntriesForDeal(ctx context.Context, dealType models.DealType, dealID string) ([]models.LedgerEntry, error)

	// DeclareReceived moves an open entry to received_declared.
	// Returns models.ErrInvalidState if the entry is not open.
	DeclareReceived(ctx context.Context, entryID string, at time.Time) error
}

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	GroupStore
	DealStore
	LedgerStore

	// Close releases any resources held by the store.
	Close() error
}
