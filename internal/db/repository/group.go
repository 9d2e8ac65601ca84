package repository

import (
	"context"
	"database/sql"

	"tallybot/internal/domain"
)

// Compile-time check.
var _ domain.GroupRepository = (*GroupRepo)(nil)

const groupColumns = "id, chat_id, title, is_active, unique_member_count, max_member_count, added_at"

// GroupRepo implements GroupRepository backed by SQLite. Mutations go
// through the single-connection write pool; lookups use the read pool.
type GroupRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewGroupRepo creates a new GroupRepo over the write/read pool pair.
func NewGroupRepo(write, read *sql.DB) *GroupRepo {
	return &GroupRepo{write: write, read: read}
}

// Create inserts a new group row with a zero member count.
func (r *GroupRepo) Create(ctx context.Context, chatID int64, title string) (*domain.Group, error) {
	row := r.write.QueryRowContext(ctx,
		"INSERT INTO groups (chat_id, title) VALUES (?, ?) RETURNING "+groupColumns,
		chatID, title,
	)
	g, err := scanGroup(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return g, nil
}

// GetByChatID returns a group by its platform chat identifier.
func (r *GroupRepo) GetByChatID(ctx context.Context, chatID int64) (*domain.Group, error) {
	row := r.read.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE chat_id = ?", chatID,
	)
	g, err := scanGroup(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return g, nil
}

// GetByTitle returns a group by exact title. When titles collide the oldest
// row wins, matching the original lookup behavior.
func (r *GroupRepo) GetByTitle(ctx context.Context, title string) (*domain.Group, error) {
	row := r.read.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE title = ? ORDER BY id LIMIT 1", title,
	)
	g, err := scanGroup(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return g, nil
}

// ListActive returns all active groups ordered by title.
func (r *GroupRepo) ListActive(ctx context.Context) ([]domain.Group, error) {
	rows, err := r.read.QueryContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE is_active = 1 ORDER BY title, id",
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

// SetActive flips the active flag for a group.
func (r *GroupRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.write.ExecContext(ctx,
		"UPDATE groups SET is_active = ? WHERE id = ?", boolToInt(active), id,
	)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("group %d not found", id)
	}
	return nil
}

// Delete removes a group. Membership rows go with it via ON DELETE CASCADE.
func (r *GroupRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.write.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("group %d not found", id)
	}
	return nil
}

// AddUniqueMember records a (group, user) pair in the ledger and bumps the
// group's unique-member counter, both inside one immediate transaction.
//
// The ledger's primary key is the sole arbiter of uniqueness: the insert is
// attempted directly, and the counter moves only when the insert took
// effect. Losing the race to a concurrent inserter reports (false, nil).
func (r *GroupRepo) AddUniqueMember(ctx context.Context, groupID, userID int64) (bool, error) {
	tx, err := r.write.BeginTx(ctx, nil)
	if err != nil {
		return false, mapDBError(err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)",
		groupID, userID,
	)
	if err != nil {
		return false, mapDBError(err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted == 0 {
		// Already in the ledger; nothing to commit.
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE groups SET unique_member_count = unique_member_count + 1 WHERE id = ?",
		groupID,
	); err != nil {
		return false, mapDBError(err)
	}

	if err := tx.Commit(); err != nil {
		return false, mapDBError(err)
	}
	return true, nil
}

// MemberIDs returns every counted user for a group.
func (r *GroupRepo) MemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := r.read.QueryContext(ctx,
		"SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id", groupID,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountMembers returns the ledger cardinality for a group.
func (r *GroupRepo) CountMembers(ctx context.Context, groupID int64) (int64, error) {
	var n int64
	err := r.read.QueryRowContext(ctx,
		"SELECT count(*) FROM group_members WHERE group_id = ?", groupID,
	).Scan(&n)
	if err != nil {
		return 0, mapDBError(err)
	}
	return n, nil
}

// RaiseMaxMemberCount advances the high-water member count, never lowering it.
func (r *GroupRepo) RaiseMaxMemberCount(ctx context.Context, groupID, observed int64) error {
	res, err := r.write.ExecContext(ctx,
		"UPDATE groups SET max_member_count = MAX(max_member_count, ?) WHERE id = ?",
		observed, groupID,
	)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("group %d not found", groupID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*domain.Group, error) {
	var g domain.Group
	var active int64
	if err := row.Scan(
		&g.ID, &g.ChatID, &g.Title, &active,
		&g.UniqueMemberCount, &g.MaxMemberCount, &g.AddedAt,
	); err != nil {
		return nil, err
	}
	g.IsActive = active != 0
	return &g, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
