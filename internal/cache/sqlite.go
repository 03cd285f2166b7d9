package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dgallion1/docmerge/internal/generator"
)

const artifactsSchema = `CREATE TABLE IF NOT EXISTS artifacts (
	fingerprint TEXT PRIMARY KEY,
	entry BLOB NOT NULL,
	created_at INTEGER NOT NULL
)`

// SQLite persists entries in a single table, one row per fingerprint.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens (or creates) an artifact cache database at path.
func OpenSQLite(path string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	c, err := NewSQLite(db, ttl)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewSQLite wraps an existing handle and creates the table if needed.
func NewSQLite(db *sql.DB, ttl time.Duration) (*SQLite, error) {
	if _, err := db.Exec(artifactsSchema); err != nil {
		return nil, fmt.Errorf("creating artifacts table: %w", err)
	}
	return &SQLite{db: db, ttl: ttl, now: time.Now}, nil
}

func (c *SQLite) Get(ctx context.Context, key string) ([]generator.Artifact, bool, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `SELECT entry FROM artifacts WHERE fingerprint = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &Error{Backend: "sqlite", Op: "get", Key: key, Err: err}
	}
	artifacts, ok, err := decodeEntry(key, data, c.now())
	if err != nil {
		return nil, false, &Error{Backend: "sqlite", Op: "get", Key: key, Err: err}
	}
	if !ok {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM artifacts WHERE fingerprint = ?`, key); err != nil {
			return nil, false, &Error{Backend: "sqlite", Op: "expire", Key: key, Err: err}
		}
	}
	return artifacts, ok, nil
}

func (c *SQLite) Put(ctx context.Context, key string, artifacts []generator.Artifact) error {
	now := c.now()
	data, err := encodeEntry(key, artifacts, c.ttl, now)
	if err != nil {
		return &Error{Backend: "sqlite", Op: "put", Key: key, Err: err}
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO artifacts (fingerprint, entry, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET entry = excluded.entry, created_at = excluded.created_at`,
		key, data, now.Unix())
	if err != nil {
		return &Error{Backend: "sqlite", Op: "put", Key: key, Err: err}
	}
	return nil
}

// Prune deletes entries older than the TTL and returns how many were removed.
func (c *SQLite) Prune(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM artifacts WHERE created_at < ?`, c.now().Add(-c.ttl).Unix())
	if err != nil {
		return 0, &Error{Backend: "sqlite", Op: "prune", Err: err}
	}
	return res.RowsAffected()
}

func (c *SQLite) Close() error {
	return c.db.Close()
}
