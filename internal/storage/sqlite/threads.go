package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/pledgeboard/internal/models"
)

// CreateThread persists a new thread and its audience targets.
func (s *SQLiteStore) CreateThread(ctx context.Context, thread *models.Thread) error {
	if thread.ID == "" {
		thread.ID = uuid.New().String()
	}
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO threads (id, creator_id, title, description, target_amount, deadline,
			                      audience_mode, group_id, committed_current, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			thread.ID, thread.CreatorID, thread.Title, thread.Description, thread.TargetAmount,
			toMillis(thread.Deadline), thread.Audience.Mode, nullString(thread.Audience.GroupID),
			toMillis(thread.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert thread: %w", err)
		}

		for _, userID := range thread.Audience.TargetUserIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO thread_targets (thread_id, user_id) VALUES (?, ?)",
				thread.ID, userID,
			); err != nil {
				return fmt.Errorf("failed to insert thread target: %w", err)
			}
		}
		return nil
	})
}

// GetThread retrieves a thread by ID with its targets and all pledges, newest first.
func (s *SQLiteStore) GetThread(ctx context.Context, threadID string) (*models.Thread, error) {
	return getThread(ctx, s.db, threadID)
}

func getThread(ctx context.Context, q querier, threadID string) (*models.Thread, error) {
	thread := &models.Thread{}
	var deadline, createdAt int64
	var groupID sql.NullString
	var committed int
	var committedAmount decimal.NullDecimal

	err := q.QueryRowContext(ctx,
		`SELECT id, creator_id, title, description, target_amount, deadline, audience_mode,
		        group_id, committed_current, committed_amount, created_at
		 FROM threads WHERE id = ?`,
		threadID,
	).Scan(&thread.ID, &thread.CreatorID, &thread.Title, &thread.Description, &thread.TargetAmount,
		&deadline, &thread.Audience.Mode, &groupID, &committed, &committedAmount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: thread %s", models.ErrNotFound, threadID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	thread.Deadline = fromMillis(deadline)
	thread.CreatedAt = fromMillis(createdAt)
	thread.Audience.GroupID = groupID.String
	thread.CommittedCurrent = committed == 1
	if committedAmount.Valid {
		thread.CommittedAmount = committedAmount.Decimal
	}

	targets, err := listIDs(ctx, q, "SELECT user_id FROM thread_targets WHERE thread_id = ? ORDER BY user_id", threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread targets: %w", err)
	}
	thread.Audience.TargetUserIDs = targets

	pledges, err := listPledges(ctx, q,
		`SELECT id, supporter_id, amount, created_at FROM pledges
		 WHERE thread_id = ? ORDER BY created_at DESC, id DESC`,
		models.DealThread, threadID,
	)
	if err != nil {
		return nil, err
	}
	thread.Pledges = pledges

	return thread, nil
}

// ListThreads retrieves all threads, newest first.
func (s *SQLiteStore) ListThreads(ctx context.Context) ([]*models.Thread, error) {
	ids, err := listIDs(ctx, s.db, "SELECT id FROM threads ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	threads := make([]*models.Thread, 0, len(ids))
	for _, id := range ids {
		thread, err := s.GetThread(ctx, id)
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

// CommitThreadCurrent sets the committed flag once; a second call fails.
func (s *SQLiteStore) CommitThreadCurrent(ctx context.Context, threadID string, amount decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE threads SET committed_current = 1, committed_amount = ? WHERE id = ? AND committed_current = 0",
		amount, threadID,
	)
	if err != nil {
		return fmt.Errorf("failed to commit thread: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to commit thread: %w", err)
	}
	if n == 0 {
		if _, err := s.GetThread(ctx, threadID); err != nil {
			return err
		}
		return fmt.Errorf("%w: thread %s already committed", models.ErrInvalidState, threadID)
	}
	return nil
}

// DeleteThread removes a thread; pledges and targets cascade, the deal lock and
// ledger entries are removed in the same transaction.
func (s *SQLiteStore) DeleteThread(ctx context.Context, threadID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM threads WHERE id = ?", threadID)
		if err != nil {
			return fmt.Errorf("failed to delete thread: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: thread %s", models.ErrNotFound, threadID)
		}
		return deleteSettlement(ctx, tx, models.DealThread, threadID)
	})
}

// AddThreadPledge appends a pledge to a thread. The thread is re-read inside
// the write transaction and handed to check, which can veto the insert; two
// processes racing on the same thread therefore see each other's pledges.
func (s *SQLiteStore) AddThreadPledge(ctx context.Context, pledge *models.Pledge, check func(*models.Thread) error) error {
	if pledge.DealType != models.DealThread {
		return fmt.Errorf("%w: pledge is for a %s, not a thread", models.ErrValidation, pledge.DealType)
	}
	stampPledge(pledge)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		thread, err := getThread(ctx, tx, pledge.DealID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(thread); err != nil {
				return err
			}
		}
		return insertPledge(ctx, tx,
			"INSERT INTO pledges (id, thread_id, supporter_id, amount, created_at) VALUES (?, ?, ?, ?, ?)",
			pledge)
	})
}

func stampPledge(pledge *models.Pledge) {
	if pledge.ID == "" {
		pledge.ID = uuid.New().String()
	}
	if pledge.CreatedAt.IsZero() {
		pledge.CreatedAt = time.Now().UTC()
	}
}

func insertPledge(ctx context.Context, tx *sql.Tx, query string, pledge *models.Pledge) error {
	_, err := tx.ExecContext(ctx, query,
		pledge.ID, pledge.DealID, pledge.SupporterID, pledge.Amount, toMillis(pledge.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pledge: %w", err)
	}
	return nil
}

func listPledges(ctx context.Context, q querier, query string, dealType models.DealType, dealID string) ([]models.Pledge, error) {
	rows, err := q.QueryContext(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pledges: %w", err)
	}
	defer rows.Close()

	var pledges []models.Pledge
	for rows.Next() {
		p := models.Pledge{DealType: dealType, DealID: dealID}
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.SupporterID, &p.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan pledge: %w", err)
		}
		p.CreatedAt = fromMillis(createdAt)
		pledges = append(pledges, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pledges: %w", err)
	}
	return pledges, nil
}

// listIDs runs a single-column string query and drains it before returning,
// so callers can issue follow-up queries on the single connection.
func listIDs(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
