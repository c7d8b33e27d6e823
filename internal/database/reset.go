package database

import (
	"context"
	"fmt"
	"strings"
)

// resetTables are the roots of the schema. CASCADE reaches every table
// that references them.
var resetTables = []string{
	tableRegions,
	tableSegments,
	tableCategories,
	tableImportRuns,
}

// Reset deletes every imported row and the import history, and restarts
// the id sequences. It is irreversible.
func (s *Store) Reset(ctx context.Context) error {
	stmt := "TRUNCATE " + strings.Join(resetTables, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}
