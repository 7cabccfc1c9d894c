// Package sqlite implements the snapshot store on a local SQLite file,
// the default backend for single-writer local projects.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"talecraft/internal/store"
)

var _ store.Store = (*Backend)(nil)

type Backend struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    snapshot   TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

// Open creates dataDir if needed and opens (or creates) the database
// inside it.
func Open(dataDir string) (*Backend, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "talecraft.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

func (b *Backend) Close(ctx context.Context) error {
	return b.db.Close()
}

func (b *Backend) SaveSnapshot(ctx context.Context, id, title string, snapshot []byte) error {
	query := `
INSERT INTO projects (id, title, snapshot, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    title = excluded.title,
    snapshot = excluded.snapshot,
    updated_at = excluded.updated_at
`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := b.db.ExecContext(ctx, query, id, title, string(snapshot), now); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (b *Backend) LoadSnapshot(ctx context.Context, id string) ([]byte, error) {
	var snapshot string
	err := b.db.QueryRowContext(ctx, "SELECT snapshot FROM projects WHERE id = ?", id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, store.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return []byte(snapshot), nil
}

func (b *Backend) ListProjects(ctx context.Context) ([]store.ProjectInfo, error) {
	rows, err := b.db.QueryContext(ctx,
		"SELECT id, title, updated_at FROM projects ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var infos []store.ProjectInfo
	for rows.Next() {
		var info store.ProjectInfo
		var updated string
		if err := rows.Scan(&info.ID, &info.Title, &updated); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			info.UpdatedAt = ts
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}

	if infos == nil {
		infos = []store.ProjectInfo{}
	}
	return infos, nil
}

func (b *Backend) DeleteProject(ctx context.Context, id string) error {
	res, err := b.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %s: %w", id, store.ErrProjectNotFound)
	}
	return nil
}
