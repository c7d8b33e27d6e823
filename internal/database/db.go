// Package database is the Postgres implementation of the import store,
// the import history and the reporting queries. SQL is built with squirrel
// and executed on a pgx pool.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

const (
	tableRegions       = "regions"
	tableMarkets       = "markets"
	tableCountries     = "countries"
	tableStates        = "states"
	tableCities        = "cities"
	tableSegments      = "customer_segments"
	tableCustomers     = "customers"
	tableCategories    = "categories"
	tableSubcategories = "subcategories"
	tableProducts      = "products"
	tableOrders        = "orders"
	tableOrderDetails  = "order_details"
	tableImportRuns    = "import_runs"
)

// Postgres error codes the store translates.
const (
	codeUniqueViolation = "23505"
)

// Options configures the connection pool.
type Options struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// PingTimeout is how long Connect keeps retrying the first ping.
	PingTimeout time.Duration
}

// querier is the subset of pgx shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.Store and domain.ImportHistory on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool and retries the first ping with exponential backoff
// until opts.PingTimeout elapses. The database may still be starting when
// the binaries come up.
func Connect(ctx context.Context, opts Options) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = opts.PingTimeout
	err = backoff.Retry(func() error {
		return pool.Ping(ctx)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// builder returns a squirrel builder using Postgres placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// wrapErr maps driver errors onto the domain sentinels.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return fmt.Errorf("%w: %s (%s)", domain.ErrDuplicate, pgErr.ConstraintName, pgErr.Detail)
	}
	return err
}

// get runs a single-row query and scans it into dest.
func get(ctx context.Context, q querier, b squirrel.Sqlizer, dest ...any) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return wrapErr(q.QueryRow(ctx, sql, args...).Scan(dest...))
}

// selectAll runs a query and maps each row positionally onto T.
func selectAll[T any](ctx context.Context, q querier, b squirrel.Sqlizer) ([]T, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[T])
	if err != nil {
		return nil, wrapErr(err)
	}
	return out, nil
}

// InTx runs fn in one Postgres transaction; any error rolls back.
func (s *Store) InTx(ctx context.Context, fn func(domain.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(ptx pgx.Tx) error {
		return fn(&tx{q: ptx})
	})
}
