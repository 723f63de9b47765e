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

// CreateGroup persists a new group together with its owner's accepted membership.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	owner := models.Membership{
		GroupID:   group.ID,
		UserID:    group.OwnerID,
		Status:    models.MembershipAccepted,
		InvitedBy: group.OwnerID,
		CreatedAt: group.CreatedAt,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO groups (id, name, owner_id, created_at) VALUES (?, ?, ?, ?)",
			group.ID, group.Name, group.OwnerID, toMillis(group.CreatedAt),
		); err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		return insertMembership(ctx, tx, owner)
	})
	if err != nil {
		return err
	}

	group.Members = []models.Membership{owner}
	return nil
}

// GetGroup retrieves a group by ID, including all memberships.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, owner_id, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.OwnerID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: group %s", models.ErrNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.CreatedAt = fromMillis(createdAt)

	members, err := s.listMemberships(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group.Members = members

	return group, nil
}

// ListGroupsForUser retrieves every group the user has a membership in, pending included.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	ids, err := listIDs(ctx, s.db,
		`SELECT g.id FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		group, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// AddMembership records a new membership, typically a pending invite.
func (s *SQLiteStore) AddMembership(ctx context.Context, m models.Membership) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertMembership(ctx, tx, m)
	})
}

// AcceptMembership flips a pending membership to accepted.
func (s *SQLiteStore) AcceptMembership(ctx context.Context, groupID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE group_members SET status = ? WHERE group_id = ? AND user_id = ? AND status = ?",
		models.MembershipAccepted, groupID, userID, models.MembershipPending,
	)
	if err != nil {
		return fmt.Errorf("failed to accept membership: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to accept membership: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no pending invite for user %s in group %s", models.ErrNotFound, userID, groupID)
	}
	return nil
}

// IsAcceptedMember reports whether the user has an accepted membership in the group.
func (s *SQLiteStore) IsAcceptedMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ? AND status = ?",
		groupID, userID, models.MembershipAccepted,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) listMemberships(ctx context.Context, groupID string) ([]models.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, user_id, status, invited_by, created_at
		 FROM group_members WHERE group_id = ? ORDER BY created_at, user_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var m models.Membership
		var createdAt int64
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Status, &m.InvitedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		m.CreatedAt = fromMillis(createdAt)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

func insertMembership(ctx context.Context, tx *sql.Tx, m models.Membership) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, status, invited_by, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.GroupID, m.UserID, m.Status, m.InvitedBy, toMillis(m.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user %s already has a membership in group %s", models.ErrConflict, m.UserID, m.GroupID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}
