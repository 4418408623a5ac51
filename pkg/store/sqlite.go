package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// ErrPackNotFound is returned when no stored pack matches the id.
var ErrPackNotFound = errors.New("store: pack not found")

// SQLitePackStore implements PackStore over a database/sql handle. The
// schema keeps one row per pack id; saving an existing pack id replaces
// the row, matching the replace-never-mutate lifecycle of loaded rules.
type SQLitePackStore struct {
	db *sql.DB
}

// NewSQLitePackStore wires the store and creates its schema.
func NewSQLitePackStore(db *sql.DB) (*SQLitePackStore, error) {
	s := &SQLitePackStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens (or creates) a SQLite database at path and wires a store
// over it. Use ":memory:" for an ephemeral store.
func Open(path string) (*SQLitePackStore, *sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s, err := NewSQLitePackStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return s, db, nil
}

func (s *SQLitePackStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS rule_packs (
		id TEXT PRIMARY KEY,
		pack_id TEXT NOT NULL UNIQUE,
		version TEXT NOT NULL,
		content_yaml TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *SQLitePackStore) SavePack(ctx context.Context, rec *PackRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	query := `
	INSERT INTO rule_packs (id, pack_id, version, content_yaml, content_hash, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(pack_id) DO UPDATE SET
		id = excluded.id,
		version = excluded.version,
		content_yaml = excluded.content_yaml,
		content_hash = excluded.content_hash,
		created_at = excluded.created_at`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.PackID, rec.Version, rec.ContentYAML, rec.ContentHash, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: save pack %s: %w", rec.PackID, err)
	}
	return nil
}

func (s *SQLitePackStore) GetPack(ctx context.Context, packID string) (*PackRecord, error) {
	query := `
	SELECT id, pack_id, version, content_yaml, content_hash, created_at
	FROM rule_packs WHERE pack_id = ?`
	rec := &PackRecord{}
	err := s.db.QueryRowContext(ctx, query, packID).Scan(
		&rec.ID, &rec.PackID, &rec.Version, &rec.ContentYAML, &rec.ContentHash, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: pack %s: %w", packID, ErrPackNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get pack %s: %w", packID, err)
	}
	return rec, nil
}

func (s *SQLitePackStore) ListPacks(ctx context.Context) ([]*PackRecord, error) {
	query := `
	SELECT id, pack_id, version, content_yaml, content_hash, created_at
	FROM rule_packs ORDER BY pack_id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list packs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []*PackRecord
	for rows.Next() {
		rec := &PackRecord{}
		if err := rows.Scan(&rec.ID, &rec.PackID, &rec.Version,
			&rec.ContentYAML, &rec.ContentHash, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan pack: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list packs: %w", err)
	}
	return recs, nil
}

func (s *SQLitePackStore) DeletePack(ctx context.Context, packID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rule_packs WHERE pack_id = ?`, packID)
	if err != nil {
		return fmt.Errorf("store: delete pack %s: %w", packID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: pack %s: %w", packID, ErrPackNotFound)
	}
	return nil
}
