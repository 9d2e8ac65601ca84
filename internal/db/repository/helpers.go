// Package repository implements domain repository interfaces using SQLite.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"tallybot/internal/domain"
)

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("resource not found")
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return domain.ErrConflict("resource already exists")
	}
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return domain.ErrUnavailable(err, "storage busy")
	}
	return err
}
