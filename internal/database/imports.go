package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// DefaultImportListLimit is used when ListImports gets a non-positive limit.
const DefaultImportListLimit = 20

var importRunColumns = []string{
	"id", "file_name", "status", "rows_read", "details_inserted",
	"rows_skipped", "message", "remote_addr", "duration_ms", "created_at",
}

// RecordImport appends one import attempt to the history. It runs on the
// pool, outside any import transaction.
func (s *Store) RecordImport(ctx context.Context, run domain.ImportRun) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("import run id %q: %w", run.ID, err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	q := builder().Insert(tableImportRuns).
		Columns(importRunColumns...).
		Values(id, run.FileName, string(run.Status), run.RowsRead, run.DetailsInserted,
			run.RowsSkipped, run.Message, run.RemoteAddr, run.Duration.Milliseconds(), run.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert import run: %w", wrapErr(err))
	}
	return nil
}

// ListImports returns the most recent import runs, newest first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]domain.ImportRun, error) {
	if limit <= 0 {
		limit = DefaultImportListLimit
	}

	q := builder().Select(importRunColumns...).
		From(tableImportRuns).
		OrderBy("created_at DESC").
		Limit(uint64(limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", wrapErr(err))
	}
	defer rows.Close()

	var runs []domain.ImportRun
	for rows.Next() {
		var (
			run        domain.ImportRun
			id         uuid.UUID
			status     string
			durationMS int64
		)
		err := rows.Scan(&id, &run.FileName, &status, &run.RowsRead, &run.DetailsInserted,
			&run.RowsSkipped, &run.Message, &run.RemoteAddr, &durationMS, &run.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		run.ID = id.String()
		run.Status = domain.ImportStatus(status)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list import runs: %w", wrapErr(err))
	}
	return runs, nil
}
