package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/pledgeboard/internal/models"
)

// CreateRequest persists a new reverse request and its audience targets.
func (s *SQLiteStore) CreateRequest(ctx context.Context, req *models.ReverseRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.RequestOpen
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO reverse_requests (id, creator_id, title, description, status,
			                               audience_mode, group_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			req.ID, req.CreatorID, req.Title, req.Description, req.Status,
			req.Audience.Mode, nullString(req.Audience.GroupID), toMillis(req.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert request: %w", err)
		}

		for _, userID := range req.Audience.TargetUserIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO request_targets (request_id, user_id) VALUES (?, ?)",
				req.ID, userID,
			); err != nil {
				return fmt.Errorf("failed to insert request target: %w", err)
			}
		}
		return nil
	})
}

// GetRequest retrieves a reverse request with its targets, every bid and all
// pledges, newest first.
func (s *SQLiteStore) GetRequest(ctx context.Context, requestID string) (*models.ReverseRequest, error) {
	return getRequest(ctx, s.db, requestID)
}

func getRequest(ctx context.Context, q querier, requestID string) (*models.ReverseRequest, error) {
	req := &models.ReverseRequest{}
	var createdAt int64
	var groupID, winner sql.NullString

	err := q.QueryRowContext(ctx,
		`SELECT id, creator_id, title, description, status, audience_mode, group_id,
		        winner_bid_id, created_at
		 FROM reverse_requests WHERE id = ?`,
		requestID,
	).Scan(&req.ID, &req.CreatorID, &req.Title, &req.Description, &req.Status,
		&req.Audience.Mode, &groupID, &winner, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: request %s", models.ErrNotFound, requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	req.CreatedAt = fromMillis(createdAt)
	req.Audience.GroupID = groupID.String
	req.WinnerBidID = winner.String

	targets, err := listIDs(ctx, q, "SELECT user_id FROM request_targets WHERE request_id = ? ORDER BY user_id", requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request targets: %w", err)
	}
	req.Audience.TargetUserIDs = targets

	bids, err := listBids(ctx, q, requestID)
	if err != nil {
		return nil, err
	}
	req.Bids = bids

	pledges, err := listPledges(ctx, q,
		`SELECT id, supporter_id, amount, created_at FROM request_pledges
		 WHERE request_id = ? ORDER BY created_at DESC, id DESC`,
		models.DealRequest, requestID,
	)
	if err != nil {
		return nil, err
	}
	req.Pledges = pledges

	return req, nil
}

// ListRequests retrieves all reverse requests, newest first.
func (s *SQLiteStore) ListRequests(ctx context.Context) ([]*models.ReverseRequest, error) {
	ids, err := listIDs(ctx, s.db, "SELECT id FROM reverse_requests ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	reqs := make([]*models.ReverseRequest, 0, len(ids))
	for _, id := range ids {
		req, err := s.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// DeleteRequest removes a reverse request; bids, pledges and targets cascade,
// the deal lock and ledger entries are removed in the same transaction.
func (s *SQLiteStore) DeleteRequest(ctx context.Context, requestID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM reverse_requests WHERE id = ?", requestID)
		if err != nil {
			return fmt.Errorf("failed to delete request: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: request %s", models.ErrNotFound, requestID)
		}
		return deleteSettlement(ctx, tx, models.DealRequest, requestID)
	})
}

// AddRequestPledge appends a pledge to a reverse request. The request is
// re-read inside the write transaction and handed to check, which can veto
// the insert.
func (s *SQLiteStore) AddRequestPledge(ctx context.Context, pledge *models.Pledge, check func(*models.ReverseRequest) error) error {
	if pledge.DealType != models.DealRequest {
		return fmt.Errorf("%w: pledge is for a %s, not a request", models.ErrValidation, pledge.DealType)
	}
	stampPledge(pledge)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		req, err := getRequest(ctx, tx, pledge.DealID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(req); err != nil {
				return err
			}
		}
		return insertPledge(ctx, tx,
			"INSERT INTO request_pledges (id, request_id, supporter_id, amount, created_at) VALUES (?, ?, ?, ?, ?)",
			pledge)
	})
}

// UpsertActiveBid replaces the amount and timestamp of the bidder's active bid,
// or inserts a new active bid if the bidder has none. check sees the request
// as read inside the write transaction and can veto the write.
func (s *SQLiteStore) UpsertActiveBid(ctx context.Context, bid *models.Bid, check func(*models.ReverseRequest) error) (bool, error) {
	if bid.CreatedAt.IsZero() {
		bid.CreatedAt = time.Now().UTC()
	}
	bid.Active = true

	var replaced bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if check != nil {
			req, err := getRequest(ctx, tx, bid.RequestID)
			if err != nil {
				return err
			}
			if err := check(req); err != nil {
				return err
			}
		}

		var existingID string
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM bids WHERE request_id = ? AND bidder_id = ? AND active = 1",
			bid.RequestID, bid.BidderID,
		).Scan(&existingID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			if bid.ID == "" {
				bid.ID = uuid.New().String()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO bids (id, request_id, bidder_id, ask_amount, active, created_at)
				 VALUES (?, ?, ?, ?, 1, ?)`,
				bid.ID, bid.RequestID, bid.BidderID, bid.AskAmount, toMillis(bid.CreatedAt),
			); err != nil {
				return fmt.Errorf("failed to insert bid: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to find active bid: %w", err)
		}

		bid.ID = existingID
		replaced = true
		if _, err := tx.ExecContext(ctx,
			"UPDATE bids SET ask_amount = ?, created_at = ? WHERE id = ?",
			bid.AskAmount, toMillis(bid.CreatedAt), bid.ID,
		); err != nil {
			return fmt.Errorf("failed to update bid: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return replaced, nil
}

func listBids(ctx context.Context, q querier, requestID string) ([]models.Bid, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, request_id, bidder_id, ask_amount, active, created_at
		 FROM bids WHERE request_id = ? ORDER BY created_at, id`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		var b models.Bid
		var active int
		var createdAt int64
		if err := rows.Scan(&b.ID, &b.RequestID, &b.BidderID, &b.AskAmount, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		b.Active = active == 1
		b.CreatedAt = fromMillis(createdAt)
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bids: %w", err)
	}
	return bids, nil
}
