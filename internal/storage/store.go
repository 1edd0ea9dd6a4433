package storage

import (
	"context"
	"time"

	"bugloc/internal/features"
)

// Run identifies one stored feature table.
type Run struct {
	ID        string
	Project   string
	CreatedAt time.Time
	Rows      int
	Digest    string
}

// TableStore persists feature tables by run.
type TableStore interface {
	// SaveTable stores the rows of a run, replacing any rows it had.
	SaveTable(ctx context.Context, run Run, table *features.Table) error

	// LoadTable returns the rows of a run in the order they were saved.
	LoadTable(ctx context.Context, runID string) (*features.Table, error)

	// Runs lists stored runs, oldest first.
	Runs(ctx context.Context) ([]Run, error)

	Close() error
}
