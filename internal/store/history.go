package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pandahoho/importer/internal/core"
)

// ImportLogEntry is one committed bulk import.
type ImportLogEntry struct {
	ID         string    `json:"id"`
	Resource   string    `json:"resource"`
	Count      int       `json:"count"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	DurationMS int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ImportLogFilter narrows history queries. Zero fields match everything.
type ImportLogFilter struct {
	Resource string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

func (f ImportLogFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Resource != "" {
		add("resource = $%d", f.Resource)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $%d", f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// recordImport writes the history row inside the upsert transaction, so a
// rolled back import leaves no entry.
func recordImport(ctx context.Context, tx pgx.Tx, resource string, res core.BulkResult, d time.Duration) error {
	origin := core.OriginFromContext(ctx)
	_, err := tx.Exec(ctx, insertImportLogSQL,
		uuid.NewString(), resource, res.Count, res.Created, res.Updated,
		origin.IPAddress, origin.UserAgent, origin.RequestID, d.Milliseconds(),
	)
	return err
}

// ListImports returns history entries, newest first.
func (s *Store) ListImports(ctx context.Context, f ImportLogFilter) ([]ImportLogEntry, error) {
	entries := make([]ImportLogEntry, 0)
	err := s.StreamImports(ctx, f, func(e ImportLogEntry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// StreamImports calls fn for every matching entry, newest first, without
// holding the whole result in memory.
func (s *Store) StreamImports(ctx context.Context, f ImportLogFilter, fn func(ImportLogEntry) error) error {
	where, args := f.where()
	query := selectImportLogSQL + where + " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query import log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e ImportLogEntry
		if err := rows.Scan(&e.ID, &e.Resource, &e.Count, &e.Created, &e.Updated,
			&e.IPAddress, &e.UserAgent, &e.RequestID, &e.DurationMS, &e.CreatedAt); err != nil {
			return fmt.Errorf("scan import log: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountImports returns how many entries match f, ignoring its paging.
func (s *Store) CountImports(ctx context.Context, f ImportLogFilter) (int64, error) {
	where, args := f.where()
	var n int64
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM import_log"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count import log: %w", err)
	}
	return n, nil
}

// PurgeImports deletes entries created before cutoff, batchSize rows per
// statement, and returns how many were removed.
func (s *Store) PurgeImports(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	var total int64
	for {
		tag, err := s.db.Exec(ctx, purgeImportLogSQL, cutoff, batchSize)
		if err != nil {
			return total, fmt.Errorf("purge import log: %w", err)
		}
		total += tag.RowsAffected()
		if tag.RowsAffected() < int64(batchSize) {
			return total, nil
		}
	}
}

// RetentionConfig controls the history purge job.
type RetentionConfig struct {
	KeepFor   time.Duration // 0 disables the job
	Interval  time.Duration
	BatchSize int
}

// RunRetention purges old history once on start, then every Interval until
// ctx is cancelled. Failures are logged and retried on the next tick.
func (s *Store) RunRetention(ctx context.Context, cfg RetentionConfig) {
	if cfg.KeepFor <= 0 {
		slog.Info("import history retention disabled")
		return
	}
	slog.Info("import history retention started",
		"keep_for", cfg.KeepFor.String(),
		"interval", cfg.Interval.String(),
		"batch_size", cfg.BatchSize,
	)

	s.purgeOnce(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("import history retention stopped")
			return
		case <-ticker.C:
			s.purgeOnce(ctx, cfg)
		}
	}
}

func (s *Store) purgeOnce(ctx context.Context, cfg RetentionConfig) {
	start := time.Now()
	purged, err := s.PurgeImports(ctx, start.Add(-cfg.KeepFor), cfg.BatchSize)
	if err != nil {
		slog.Error("import history purge failed", "error", err, "purged", purged)
		return
	}
	slog.Info("import history purged",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
