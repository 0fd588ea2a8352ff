// Package records persists journal records (opaque ciphertext plus a
// plaintext creation hint) in a local SQLite database.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

// Record is one stored journal entry. Ciphertext is the envelope JSON text and
// CreatedAt is a Unix millisecond hint; the authoritative timestamp lives
// inside the encrypted payload.
type Record struct {
	ID         int64  `json:"id"`
	Ciphertext string `json:"ciphertext"`
	CreatedAt  int64  `json:"createdAt"`
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ciphertext TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Store wraps the SQLite database holding the entries table.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the record database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("records: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("records: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("records: migrate: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		db.Close()
		return nil, fmt.Errorf("records: chmod: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a record and returns its assigned id.
func (s *Store) Add(ctx context.Context, ciphertext string, createdAt int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO entries (ciphertext, created_at) VALUES (?, ?)", ciphertext, createdAt)
	if err != nil {
		return 0, fmt.Errorf("records: add: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("records: add: %w", err)
	}
	return id, nil
}

// List returns every record ordered by id.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, ciphertext, created_at FROM entries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("records: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Ciphertext, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("records: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns the record with the given id, or ErrRecordNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Record, error) {
	r := Record{ID: id}
	err := s.db.QueryRowContext(ctx,
		"SELECT ciphertext, created_at FROM entries WHERE id = ?", id).Scan(&r.Ciphertext, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("records: id %d: %w", id, kerrors.ErrRecordNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("records: get: %w", err)
	}
	return r, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("records: count: %w", err)
	}
	return n, nil
}

// Delete removes the record with the given id. Deleting a missing id returns
// ErrRecordNotFound.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("records: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("records: id %d: %w", id, kerrors.ErrRecordNotFound)
	}
	return nil
}

// PutAtID writes the record at its id, replacing any existing row.
func (s *Store) PutAtID(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO entries (id, ciphertext, created_at) VALUES (?, ?, ?)",
		r.ID, r.Ciphertext, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("records: put %d: %w", r.ID, err)
	}
	return nil
}

// ReplaceAll substitutes the whole table in one transaction. Records with a
// non-zero ID keep it; the rest get fresh ids.
func (s *Store) ReplaceAll(ctx context.Context, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("records: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("records: clear: %w", err)
	}
	for _, r := range recs {
		if r.ID > 0 {
			_, err = tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO entries (id, ciphertext, created_at) VALUES (?, ?, ?)",
				r.ID, r.Ciphertext, r.CreatedAt)
		} else {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO entries (ciphertext, created_at) VALUES (?, ?)",
				r.Ciphertext, r.CreatedAt)
		}
		if err != nil {
			return fmt.Errorf("records: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("records: commit: %w", err)
	}
	return nil
}
