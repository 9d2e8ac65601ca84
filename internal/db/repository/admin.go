package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"tallybot/internal/domain"
)

// Compile-time check.
var _ domain.AdminRepository = (*AdminRepo)(nil)

const adminColumns = "id, user_id, username, is_super_admin, added_at"

// AdminRepo implements AdminRepository backed by SQLite.
type AdminRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewAdminRepo creates a new AdminRepo over the write/read pool pair.
func NewAdminRepo(write, read *sql.DB) *AdminRepo {
	return &AdminRepo{write: write, read: read}
}

// Add inserts a new admin. A duplicate user ID maps to a ConflictError.
func (r *AdminRepo) Add(ctx context.Context, userID int64, username string, super bool) (*domain.Admin, error) {
	row := r.write.QueryRowContext(ctx,
		"INSERT INTO admins (user_id, username, is_super_admin) VALUES (?, ?, ?) RETURNING "+adminColumns,
		userID, normalizeUsername(username), boolToInt(super),
	)
	a, err := scanAdmin(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return a, nil
}

// GetByUserID returns an admin by platform user ID.
func (r *AdminRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Admin, error) {
	row := r.read.QueryRowContext(ctx,
		"SELECT "+adminColumns+" FROM admins WHERE user_id = ?", userID,
	)
	a, err := scanAdmin(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return a, nil
}

// GetByUsername returns an admin by username (without the leading @).
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	row := r.read.QueryRowContext(ctx,
		"SELECT "+adminColumns+" FROM admins WHERE username = ?", normalizeUsername(username),
	)
	a, err := scanAdmin(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return a, nil
}

// List returns all admins, super admins first.
func (r *AdminRepo) List(ctx context.Context) ([]domain.Admin, error) {
	rows, err := r.read.QueryContext(ctx,
		"SELECT "+adminColumns+" FROM admins ORDER BY is_super_admin DESC, user_id",
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var admins []domain.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, *a)
	}
	return admins, rows.Err()
}

// SetSuperAdmin flips the super-admin flag for an existing admin.
func (r *AdminRepo) SetSuperAdmin(ctx context.Context, userID int64, super bool) error {
	res, err := r.write.ExecContext(ctx,
		"UPDATE admins SET is_super_admin = ? WHERE user_id = ?", boolToInt(super), userID,
	)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("admin %d not found", userID)
	}
	return nil
}

// Remove deletes an admin by platform user ID.
func (r *AdminRepo) Remove(ctx context.Context, userID int64) error {
	res, err := r.write.ExecContext(ctx, "DELETE FROM admins WHERE user_id = ?", userID)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("admin %d not found", userID)
	}
	return nil
}

// UpsertPotentialAdmin records (or refreshes) a user who contacted the bot
// directly, so they can later be promoted by username.
func (r *AdminRepo) UpsertPotentialAdmin(ctx context.Context, userID int64, username string) error {
	_, err := r.write.ExecContext(ctx,
		`INSERT INTO potential_admins (user_id, username, requested_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id) DO UPDATE SET username = excluded.username, requested_at = excluded.requested_at`,
		userID, normalizeUsername(username),
	)
	return mapDBError(err)
}

// GetPotentialAdminByUsername returns a non-expired potential admin.
func (r *AdminRepo) GetPotentialAdminByUsername(ctx context.Context, username string) (*domain.PotentialAdmin, error) {
	var p domain.PotentialAdmin
	err := r.read.QueryRowContext(ctx,
		`SELECT user_id, username, requested_at FROM potential_admins
		 WHERE username = ? AND requested_at >= ?`,
		normalizeUsername(username), time.Now().UTC().Add(-domain.PotentialAdminTTL),
	).Scan(&p.UserID, &p.Username, &p.RequestedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &p, nil
}

// SweepPotentialAdmins deletes registrations older than the cutoff.
func (r *AdminRepo) SweepPotentialAdmins(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.write.ExecContext(ctx,
		"DELETE FROM potential_admins WHERE requested_at < ?", olderThan,
	)
	if err != nil {
		return 0, mapDBError(err)
	}
	return res.RowsAffected()
}

func scanAdmin(row rowScanner) (*domain.Admin, error) {
	var a domain.Admin
	var super int64
	if err := row.Scan(&a.ID, &a.UserID, &a.Username, &super, &a.AddedAt); err != nil {
		return nil, err
	}
	a.IsSuperAdmin = super != 0
	return &a, nil
}

func normalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}
