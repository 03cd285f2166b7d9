package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const documentsSchema = `CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL DEFAULT '',
	requires TEXT NOT NULL DEFAULT '',
	content BLOB NOT NULL,
	position INTEGER NOT NULL DEFAULT 0
)`

// SQL serves templates stored in a documents table. Requirements are kept
// as a comma separated list.
type SQL struct {
	name string
	db   *sql.DB
}

// OpenSQLite opens (or creates) a SQLite template database at path and
// makes sure the documents table exists.
func OpenSQLite(path string) (*SQL, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening template database: %w", err)
	}
	p := NewSQL("sqlite:"+path, db)
	if err := p.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewSQL wraps an existing database handle.
func NewSQL(name string, db *sql.DB) *SQL {
	return &SQL{name: name, db: db}
}

// EnsureSchema creates the documents table if it does not exist.
func (p *SQL) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, documentsSchema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// Put inserts or replaces a document.
func (p *SQL) Put(ctx context.Context, d Document) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, format, requires, content, position)
		 VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM documents))
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, format = excluded.format,
		   requires = excluded.requires, content = excluded.content`,
		d.ID, d.Title, d.Format, strings.Join(d.Requires, ","), d.Content)
	if err != nil {
		return fmt.Errorf("storing document %s: %w", d.ID, err)
	}
	return nil
}

// Close releases the database handle.
func (p *SQL) Close() error {
	return p.db.Close()
}

func (p *SQL) Name() string { return p.name }

func (p *SQL) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, title, format, requires, content FROM documents ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := p.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return out, nil
}

func (p *SQL) FetchDocument(ctx context.Context, id string) (Document, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, title, format, requires, content FROM documents WHERE id = ?`, id)
	d, err := p.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, &NotFoundError{ID: id}
	}
	return d, err
}

type scanner interface {
	Scan(dest ...any) error
}

func (p *SQL) scan(s scanner) (Document, error) {
	var (
		d        Document
		requires string
	)
	if err := s.Scan(&d.ID, &d.Title, &d.Format, &requires, &d.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("scanning document: %w", err)
	}
	d.Requires = splitRequires(requires)
	d.Origin = p.name
	return d, nil
}

func splitRequires(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
