// Package store persists imported content in Postgres. Every bulk call runs
// as one pgx batch inside one transaction, so a request lands completely or
// not at all. Each committed call also leaves an import_log entry.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/domain"
)

// ErrEmptyBatch is returned when a bulk call carries no records.
var ErrEmptyBatch = errors.New("empty file: no records to store")

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store implements targets.Sink on top of Postgres.
type Store struct {
	db DB
}

// New wraps an open pool.
func New(db DB) *Store {
	return &Store{db: db}
}

// Open parses the connection URL, applies pool limits and verifies the
// connection.
func Open(ctx context.Context, url string, opts PoolOptions) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(opts.MaxConns)
	poolCfg.MinConns = int32(opts.MinConns)
	poolCfg.MaxConnLifetime = opts.MaxConnLifetime
	poolCfg.MaxConnIdleTime = opts.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connected",
		"database", poolCfg.ConnConfig.Database,
		"max_conns", poolCfg.MaxConns,
		"min_conns", poolCfg.MinConns,
	)
	return pool, nil
}

// PoolOptions mirrors the database section of the server config.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// UpsertCities inserts or updates cities keyed by slug.
func (s *Store) UpsertCities(ctx context.Context, cities []domain.City) (core.BulkResult, error) {
	if err := checkUnique(cities, func(c domain.City) string { return c.Slug }, "slug"); err != nil {
		return core.BulkResult{}, err
	}
	batch := &pgx.Batch{}
	for _, c := range cities {
		batch.Queue(upsertCitySQL, c.Name, c.Slug, c.Province, c.Description, c.ImageURL, c.Featured)
	}
	return s.run(ctx, "cities", batch)
}

// UpsertTriplists inserts or updates triplists keyed by slug.
func (s *Store) UpsertTriplists(ctx context.Context, triplists []domain.Triplist) (core.BulkResult, error) {
	if err := checkUnique(triplists, func(t domain.Triplist) string { return t.Slug }, "slug"); err != nil {
		return core.BulkResult{}, err
	}
	batch := &pgx.Batch{}
	for _, t := range triplists {
		batch.Queue(upsertTriplistSQL, t.Title, t.Slug, t.CitySlug, t.Category, t.Description, t.DurationDays)
	}
	return s.run(ctx, "triplists", batch)
}

// UpsertCarouselItems inserts or updates carousel items keyed by title and
// link.
func (s *Store) UpsertCarouselItems(ctx context.Context, items []domain.CarouselItem) (core.BulkResult, error) {
	key := func(it domain.CarouselItem) string { return it.Title + " -> " + it.LinkURL }
	if err := checkUnique(items, key, "key (title, link_url)"); err != nil {
		return core.BulkResult{}, err
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(upsertCarouselSQL, it.Title, it.Subtitle, it.ImageURL, it.LinkURL, it.SortOrder, it.Active)
	}
	return s.run(ctx, "carousel", batch)
}

// checkUnique rejects a request that carries the same key twice. The second
// upsert would silently overwrite the first inside one transaction.
func checkUnique[T any](records []T, key func(T) string, name string) error {
	seen := make(map[string]int, len(records))
	for i, r := range records {
		k := key(r)
		if first, ok := seen[k]; ok {
			return fmt.Errorf("duplicate %s %q in request: records %d and %d", name, k, first+1, i+1)
		}
		seen[k] = i
	}
	return nil
}

// run sends the batch in a transaction and tallies created versus updated
// rows. Any failure rolls the whole batch back.
func (s *Store) run(ctx context.Context, resource string, batch *pgx.Batch) (core.BulkResult, error) {
	if batch.Len() == 0 {
		return core.BulkResult{}, ErrEmptyBatch
	}
	start := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return core.BulkResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	var result core.BulkResult
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		var inserted bool
		if err := results.QueryRow().Scan(&inserted); err != nil {
			results.Close()
			return core.BulkResult{}, fmt.Errorf("upsert %s record %d: %w", resource, i+1, describePgError(err))
		}
		result.Count++
		if inserted {
			result.Created++
		} else {
			result.Updated++
		}
	}
	if err := results.Close(); err != nil {
		return core.BulkResult{}, fmt.Errorf("upsert %s: %w", resource, describePgError(err))
	}
	if err := recordImport(ctx, tx, resource, result, time.Since(start)); err != nil {
		return core.BulkResult{}, fmt.Errorf("record %s import: %w", resource, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.BulkResult{}, fmt.Errorf("commit %s: %w", resource, err)
	}

	slog.Info("bulk upsert committed",
		"resource", resource,
		"count", result.Count,
		"created", result.Created,
		"updated", result.Updated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// describePgError rewrites the constraint failures an import can hit into the
// phrases MapError recognizes, keeping the original error wrapped.
func describePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return fmt.Errorf("duplicate key %s: %w", pgErr.ConstraintName, err)
	case "23514":
		// The only check constraint guards duration_days.
		return fmt.Errorf("invalid number: check constraint %s failed: %w", pgErr.ConstraintName, err)
	case "40P01":
		return fmt.Errorf("deadlock detected: %w", err)
	}
	return err
}
