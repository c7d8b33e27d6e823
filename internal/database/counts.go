package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// Counts returns committed row counts for every entity table in one query.
func (s *Store) Counts(ctx context.Context) (domain.Counts, error) {
	var c domain.Counts
	dest := []any{
		&c.Regions, &c.Markets, &c.Countries, &c.States, &c.Cities,
		&c.Segments, &c.Customers,
		&c.Categories, &c.Subcategories, &c.Products,
		&c.Orders, &c.OrderDetails,
	}

	tables := c.Tables()
	parts := make([]string, len(tables))
	for i, t := range tables {
		parts[i] = fmt.Sprintf("(SELECT COUNT(*) FROM %s)", t.Table)
	}

	sql := "SELECT " + strings.Join(parts, ", ")
	if err := s.pool.QueryRow(ctx, sql).Scan(dest...); err != nil {
		return domain.Counts{}, fmt.Errorf("count tables: %w", wrapErr(err))
	}
	return c, nil
}
