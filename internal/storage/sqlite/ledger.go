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

// errAlreadySettled aborts a settlement transaction that found the deal lock.
var errAlreadySettled = errors.New("deal already settled")

const ledgerColumns = "id, deal_type, deal_id, pledge_id, payer_id, payee_id, amount, status, created_at, declared_at"

// SettleDeal writes ledger entries and the deal lock as one unit.
//
// The transaction starts with BEGIN IMMEDIATE, so the lock check below and the
// writes that follow cannot interleave with another settlement. Ledger rows are
// also unique per (deal_type, deal_id, pledge_id), which keeps a retry from
// double-counting even if the lock row were missing.
func (s *SQLiteStore) SettleDeal(ctx context.Context, settlement *models.Settlement) (bool, error) {
	if settlement.SettledAt.IsZero() {
		settlement.SettledAt = time.Now().UTC()
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM deal_locks WHERE deal_type = ? AND deal_id = ?",
			settlement.DealType, settlement.DealID,
		).Scan(&exists)
		if err == nil {
			return errAlreadySettled
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check deal lock: %w", err)
		}

		if settlement.DealType == models.DealRequest {
			res, err := tx.ExecContext(ctx,
				"UPDATE reverse_requests SET status = ?, winner_bid_id = ? WHERE id = ? AND status = ?",
				models.RequestClosed, settlement.WinnerBidID, settlement.DealID, models.RequestOpen,
			)
			if err != nil {
				return fmt.Errorf("failed to close request: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: request %s is not open", models.ErrInvalidState, settlement.DealID)
			}
		}

		for i := range settlement.Entries {
			e := &settlement.Entries[i]
			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			if e.CreatedAt.IsZero() {
				e.CreatedAt = settlement.SettledAt
			}
			if e.Status == "" {
				e.Status = models.LedgerOpen
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ledger_entries (`+ledgerColumns+`)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
				 ON CONFLICT (deal_type, deal_id, pledge_id) DO NOTHING`,
				e.ID, settlement.DealType, settlement.DealID, e.PledgeID, e.PayerID, e.PayeeID,
				e.Amount, e.Status, toMillis(e.CreatedAt),
			); err != nil {
				return fmt.Errorf("failed to insert ledger entry: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO deal_locks (deal_type, deal_id, created_at) VALUES (?, ?, ?)",
			settlement.DealType, settlement.DealID, toMillis(settlement.SettledAt),
		)
		if isUniqueViolation(err) {
			return errAlreadySettled
		}
		if err != nil {
			return fmt.Errorf("failed to insert deal lock: %w", err)
		}
		return nil
	})
	if errors.Is(err, errAlreadySettled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetDealLock returns the deal's lock, or nil if it has not been settled.
func (s *SQLiteStore) GetDealLock(ctx context.Context, dealType models.DealType, dealID string) (*models.DealLock, error) {
	lock := &models.DealLock{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT deal_type, deal_id, created_at FROM deal_locks WHERE deal_type = ? AND deal_id = ?",
		dealType, dealID,
	).Scan(&lock.DealType, &lock.DealID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal lock: %w", err)
	}
	lock.CreatedAt = fromMillis(createdAt)
	return lock, nil
}

// GetLedgerEntry retrieves a ledger entry by ID.
func (s *SQLiteStore) GetLedgerEntry(ctx context.Context, entryID string) (*models.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+ledgerColumns+" FROM ledger_entries WHERE id = ?", entryID)
	entry, err := scanLedgerEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: ledger entry %s", models.ErrNotFound, entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &entry, nil
}

// ListLedgerEntriesForUser retrieves entries where the user pays or receives.
func (s *SQLiteStore) ListLedgerEntriesForUser(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	return s.queryLedger(ctx,
		"SELECT "+ledgerColumns+" FROM ledger_entries WHERE payer_id = ? OR payee_id = ? ORDER BY created_at DESC, id",
		userID, userID,
	)
}

// ListLedgerEntriesForDeal retrieves all entries emitted by one deal's settlement.
func (s *SQLiteStore) ListLedgerEntriesForDeal(ctx context.Context, dealType models.DealType, dealID string) ([]models.LedgerEntry, error) {
	return s.queryLedger(ctx,
		"SELECT "+ledgerColumns+" FROM ledger_entries WHERE deal_type = ? AND deal_id = ? ORDER BY created_at, id",
		dealType, dealID,
	)
}

// DeclareReceived marks an open entry as received. The status guard in the
// WHERE clause makes a concurrent second declaration fail.
func (s *SQLiteStore) DeclareReceived(ctx context.Context, entryID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE ledger_entries SET status = ?, declared_at = ? WHERE id = ? AND status = ?",
		models.LedgerReceivedDeclared, toMillis(at), entryID, models.LedgerOpen,
	)
	if err != nil {
		return fmt.Errorf("failed to declare ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to declare ledger entry: %w", err)
	}
	if n == 0 {
		if _, err := s.GetLedgerEntry(ctx, entryID); err != nil {
			return err
		}
		return fmt.Errorf("%w: ledger entry %s is not open", models.ErrInvalidState, entryID)
	}
	return nil
}

func (s *SQLiteStore) queryLedger(ctx context.Context, query string, args ...any) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

func scanLedgerEntry(row scanner) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	var createdAt int64
	var declaredAt sql.NullInt64
	if err := row.Scan(&e.ID, &e.DealType, &e.DealID, &e.PledgeID, &e.PayerID, &e.PayeeID,
		&e.Amount, &e.Status, &createdAt, &declaredAt); err != nil {
		return models.LedgerEntry{}, err
	}
	e.CreatedAt = fromMillis(createdAt)
	if declaredAt.Valid {
		t := fromMillis(declaredAt.Int64)
		e.DeclaredAt = &t
	}
	return e, nil
}

// deleteSettlement removes a deal's lock and ledger entries inside tx.
func deleteSettlement(ctx context.Context, tx *sql.Tx, dealType models.DealType, dealID string) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM ledger_entries WHERE deal_type = ? AND deal_id = ?", dealType, dealID,
	); err != nil {
		return fmt.Errorf("failed to delete ledger entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM deal_locks WHERE deal_type = ? AND deal_id = ?", dealType, dealID,
	); err != nil {
		return fmt.Errorf("failed to delete deal lock: %w", err)
	}
	return nil
}
