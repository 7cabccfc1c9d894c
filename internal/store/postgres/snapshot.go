package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"talecraft/internal/store"
)

// SaveSnapshot replaces the stored snapshot for the project. A
// transaction-scoped advisory lock serializes writers on the same
// project id.
func (c *Client) SaveSnapshot(ctx context.Context, id, title string, snapshot []byte) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", id); err != nil {
		return fmt.Errorf("locking project %s: %w", id, err)
	}

	query := `
INSERT INTO projects (id, title, snapshot, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    snapshot = EXCLUDED.snapshot,
    updated_at = now()
`
	if _, err := tx.Exec(ctx, query, id, title, snapshot); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (c *Client) LoadSnapshot(ctx context.Context, id string) ([]byte, error) {
	var snapshot []byte
	err := c.pool.QueryRow(ctx, "SELECT snapshot FROM projects WHERE id = $1", id).Scan(&snapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, store.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return snapshot, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]store.ProjectInfo, error) {
	rows, err := c.pool.Query(ctx, "SELECT id, title, updated_at FROM projects ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var infos []store.ProjectInfo
	for rows.Next() {
		var info store.ProjectInfo
		if err := rows.Scan(&info.ID, &info.Title, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
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

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	tag, err := c.pool.Exec(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, store.ErrProjectNotFound)
	}
	return nil
}
