// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"mcp-nutrisnap/internal/models"
)

// Fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by GetAnalysis for unknown IDs.
var ErrNotFound = errors.New("analysis not found")

// SQLiteStorage is the session journal. The database lives in memory, so
// nothing outlives the process.
type SQLiteStorage struct {
	db         *sql.DB
	maxEntries int
}

// NewSQLiteStorage opens an empty journal keeping at most maxEntries rows.
// Zero or negative means no limit.
func NewSQLiteStorage(maxEntries int) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db, maxEntries: maxEntries}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS analyses (
        id TEXT PRIMARY KEY,
        flow TEXT NOT NULL,
        input TEXT NOT NULL,
        output TEXT,
        error_kind TEXT NOT NULL DEFAULT '',
        error_message TEXT NOT NULL DEFAULT '',
        duration_ms INTEGER NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
    CREATE INDEX IF NOT EXISTS idx_analyses_flow ON analyses(flow);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveAnalysis records a and drops the oldest rows beyond the limit.
func (s *SQLiteStorage) SaveAnalysis(ctx context.Context, a *models.Analysis) error {
	if a == nil || a.ID == "" {
		return errors.New("analysis must have an id")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var output any
	if len(a.Output) > 0 {
		output = string(a.Output)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO analyses (id, flow, input, output, error_kind, error_message, duration_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `,
		a.ID, a.Flow, string(a.Input), output, a.ErrorKind, a.ErrorMessage,
		a.DurationMS, a.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	if s.maxEntries > 0 {
		_, err = tx.ExecContext(ctx, `
            DELETE FROM analyses WHERE rowid NOT IN (
                SELECT rowid FROM analyses ORDER BY created_at DESC, rowid DESC LIMIT ?
            )
        `, s.maxEntries)
		if err != nil {
			return fmt.Errorf("failed to trim journal: %w", err)
		}
	}

	return tx.Commit()
}

// GetAnalysis returns the entry with id or ErrNotFound.
func (s *SQLiteStorage) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, flow, input, output, error_kind, error_message, duration_ms, created_at
        FROM analyses
        WHERE id = ?
    `, id)

	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAnalyses returns up to limit entries, newest first. An empty flow
// matches every flow.
func (s *SQLiteStorage) ListAnalyses(ctx context.Context, flow string, limit int) ([]*models.Analysis, error) {
	query := `
        SELECT id, flow, input, output, error_kind, error_message, duration_ms, created_at
        FROM analyses
        WHERE 1=1
    `
	args := []interface{}{}

	if flow != "" {
		query += " AND flow = ?"
		args = append(args, flow)
	}

	query += " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	analyses := []*models.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read analyses: %w", err)
	}

	return analyses, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*models.Analysis, error) {
	a := &models.Analysis{}
	var input, createdAtStr string
	var output sql.NullString

	err := row.Scan(&a.ID, &a.Flow, &input, &output, &a.ErrorKind, &a.ErrorMessage, &a.DurationMS, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	a.Input = []byte(input)
	if output.Valid {
		a.Output = []byte(output.String)
	}
	if a.CreatedAt, err = time.Parse(timeLayout, createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return a, nil
}
