// Package db opens the tally SQLite database and applies migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

// DSN parameters applied to every connection. WAL plus a busy timeout keeps
// the single-writer/many-reader split from surfacing SQLITE_BUSY to callers.
const (
	busyTimeoutMS = "5000"
	synchronous   = "NORMAL"
	journalMode   = "WAL"
)

// DB bundles the write and read pools for one SQLite file.
//
// The write pool holds exactly one connection and opens transactions with
// _txlock=immediate, so counter increments serialize at the database. The
// read pool serves the query surface (active-group listings, lookups).
type DB struct {
	Write *sql.DB
	Read  *sql.DB
}

// Open opens the write/read pool pair for the given SQLite file path.
// readMaxOpen sizes the read pool; 0 means the default of 4.
func Open(path string, readMaxOpen int) (*DB, error) {
	write, err := open(path, true, 1)
	if err != nil {
		return nil, err
	}

	if readMaxOpen <= 0 {
		readMaxOpen = 4
	}
	read, err := open(path, false, readMaxOpen)
	if err != nil {
		_ = write.Close()
		return nil, err
	}

	return &DB{Write: write, Read: read}, nil
}

// Close closes both pools.
func (d *DB) Close() error {
	rerr := d.Read.Close()
	if err := d.Write.Close(); err != nil {
		return err
	}
	return rerr
}

func open(path string, writer bool, maxOpen int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite3", dsn(path, writer))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxOpen)
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return pool, nil
}

func dsn(path string, writer bool) string {
	params := url.Values{}
	params.Set("_journal_mode", journalMode)
	params.Set("_busy_timeout", busyTimeoutMS)
	params.Set("_synchronous", synchronous)
	params.Set("_foreign_keys", "on")
	if writer {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
