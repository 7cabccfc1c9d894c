// Package store defines whole-snapshot persistence for projects. The
// contract is deliberately narrow: a snapshot is saved or replaced
// atomically per project, never patched, so the in-memory aggregate is
// the only place invariants are enforced.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talecraft/internal/truth"
)

// ErrProjectNotFound is returned when loading or deleting a project id
// that was never saved.
var ErrProjectNotFound = errors.New("project not found")

type ProjectInfo struct {
	ID        string
	Title     string
	UpdatedAt time.Time
}

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	SaveSnapshot(ctx context.Context, id, title string, snapshot []byte) error
	LoadSnapshot(ctx context.Context, id string) ([]byte, error)
	ListProjects(ctx context.Context) ([]ProjectInfo, error)
	DeleteProject(ctx context.Context, id string) error
}

// SaveProject validates, encodes, and persists a project snapshot. An
// inconsistent aggregate is never written.
func SaveProject(ctx context.Context, s Store, p *truth.Project) error {
	data, err := truth.EncodeSnapshot(p)
	if err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	if err := s.SaveSnapshot(ctx, p.ID, p.Title, data); err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	return nil
}

// LoadProject fetches and decodes a project snapshot.
func LoadProject(ctx context.Context, s Store, id string) (*truth.Project, error) {
	data, err := s.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	p, err := truth.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	return p, nil
}
