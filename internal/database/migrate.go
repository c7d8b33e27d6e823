package database

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Migrate creates any missing tables and indexes. It is safe to run on
// every start.
func (s *Store) Migrate(ctx context.Context) error {
	// No arguments: pgx sends this over the simple protocol, which accepts
	// several statements in one call.
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
