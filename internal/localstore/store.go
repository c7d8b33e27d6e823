// Package localstore is a gorm + SQLite implementation of the import store.
// It backs dry-run imports and tests; production data lives in Postgres.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// Store implements domain.Store and domain.ImportHistory over SQLite.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and migrates
// the schema.
func Open(path string) (*Store, error) {
	return open(path + "?_foreign_keys=on")
}

// OpenMemory opens a private in-memory database. Callers that need two
// stores to share data pass the same name.
func OpenMemory(name string) (*Store, error) {
	return open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name))
}

func open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the store's lifetime.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(allModels...); err != nil {
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InTx runs fn in one SQLite transaction.
func (s *Store) InTx(ctx context.Context, fn func(domain.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&tx{db: gtx})
	})
}

// Counts returns committed row counts per entity table.
func (s *Store) Counts(ctx context.Context) (domain.Counts, error) {
	var c domain.Counts
	db := s.db.WithContext(ctx)
	targets := []struct {
		model any
		dst   *int64
	}{
		{&region{}, &c.Regions},
		{&market{}, &c.Markets},
		{&country{}, &c.Countries},
		{&state{}, &c.States},
		{&city{}, &c.Cities},
		{&segment{}, &c.Segments},
		{&customer{}, &c.Customers},
		{&category{}, &c.Categories},
		{&subcategory{}, &c.Subcategories},
		{&product{}, &c.Products},
		{&order{}, &c.Orders},
		{&orderDetail{}, &c.OrderDetails},
	}
	for _, t := range targets {
		if err := db.Model(t.model).Count(t.dst).Error; err != nil {
			return domain.Counts{}, fmt.Errorf("count %T: %w", t.model, err)
		}
	}
	return c, nil
}

// RecordImport appends an import run.
func (s *Store) RecordImport(ctx context.Context, run domain.ImportRun) error {
	m := importRun{
		ID:              run.ID,
		FileName:        run.FileName,
		Status:          string(run.Status),
		RowsRead:        run.RowsRead,
		DetailsInserted: run.DetailsInserted,
		RowsSkipped:     run.RowsSkipped,
		Message:         run.Message,
		RemoteAddr:      run.RemoteAddr,
		DurationMs:      run.Duration.Milliseconds(),
		CreatedAt:       run.CreatedAt,
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("record import run: %w", translate(err))
	}
	return nil
}

// ListImports returns the latest runs, newest first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]domain.ImportRun, error) {
	var rows []importRun
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	runs := make([]domain.ImportRun, len(rows))
	for i, r := range rows {
		runs[i] = r.toDomain()
	}
	return runs, nil
}

// translate maps driver errors onto the domain sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	default:
		return err
	}
}
