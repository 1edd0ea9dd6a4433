package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bugloc/internal/features"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

type SQLiteStore struct {
	db *sql.DB
}

var _ TableStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func featureColumns() []string {
	cols := make([]string, features.NumFeatures)
	for i := range cols {
		cols[i] = fmt.Sprintf("f%d", i+1)
	}
	return cols
}

func (s *SQLiteStore) initSchema() error {
	featureDefs := make([]string, features.NumFeatures)
	for i, c := range featureColumns() {
		featureDefs[i] = c + " REAL NOT NULL"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			project TEXT,
			created_at TEXT,
			row_count INTEGER,
			digest TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS features (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			bug_index INTEGER NOT NULL,
			file_index INTEGER NOT NULL,
			` + strings.Join(featureDefs, ",\n\t\t\t") + `,
			label INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_features_pair ON features(run_id, bug_index, file_index);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveTable(ctx context.Context, run Run, table *features.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, project, created_at, row_count, digest)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project=excluded.project,
			created_at=excluded.created_at,
			row_count=excluded.row_count,
			digest=excluded.digest
	`, run.ID, run.Project, run.CreatedAt.UTC().Format(time.RFC3339Nano), table.Len(), run.Digest)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	// Replace the run's rows wholesale.
	if _, err := tx.ExecContext(ctx, "DELETE FROM features WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("failed to clear rows: %w", err)
	}

	cols := featureColumns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+5), ", ")
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO features (run_id, seq, bug_index, file_index, `+strings.Join(cols, ", ")+`, label)
		VALUES (`+placeholders+`)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, 0, len(cols)+5)
	for seq := range table.Rows {
		row := &table.Rows[seq]
		args = append(args[:0], run.ID, seq, row.BugIndex, row.FileIndex)
		for _, v := range row.Values() {
			args = append(args, v)
		}
		args = append(args, row.Label)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to save row %d: %w", seq, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadTable(ctx context.Context, runID string) (*features.Table, error) {
	var rowCount int
	err := s.db.QueryRowContext(ctx, "SELECT row_count FROM runs WHERE id = ?", runID).Scan(&rowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT bug_index, file_index, "+strings.Join(featureColumns(), ", ")+", label FROM features WHERE run_id = ? ORDER BY seq",
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	table := &features.Table{Rows: make([]features.Vector, 0, rowCount)}
	for rows.Next() {
		var bug, file, label int
		var values [features.NumFeatures]float64
		dest := []any{&bug, &file}
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &label)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		table.Rows = append(table.Rows, features.FromValues(bug, file, values, label))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func (s *SQLiteStore) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, project, created_at, row_count, digest FROM runs ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.Project, &created, &r.Rows, &r.Digest); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s has invalid created_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
