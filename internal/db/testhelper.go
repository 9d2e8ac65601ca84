package db

import (
	"path/filepath"
	"testing"
)

// OpenTest opens a migrated write/read pool pair in t.TempDir() and
// registers cleanup. Tests that don't care about the split can use
// the write pool for everything.
func OpenTest(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tally.sqlite")

	d, err := Open(path, 4)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := RunMigrations(d.Write); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return d
}
