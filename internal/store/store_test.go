package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/domain"
)

// ============================================================================
// Unit Tests
// ============================================================================

func TestUpsert_EmptyBatch(t *testing.T) {
	st := New(nil)
	if _, err := st.UpsertCities(context.Background(), nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("UpsertCities(nil) error = %v, want ErrEmptyBatch", err)
	}
	if got := core.MapError(ErrEmptyBatch).Code; got != "FILE005" {
		t.Errorf("MapError(ErrEmptyBatch).Code = %s, want FILE005", got)
	}
}

func TestUpsert_DuplicateKeys(t *testing.T) {
	st := New(nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		upsert  func() error
		wantMsg string
	}{
		{
			name: "city slug",
			upsert: func() error {
				_, err := st.UpsertCities(ctx, []domain.City{{Slug: "xian"}, {Slug: "chengdu"}, {Slug: "xian"}})
				return err
			},
			wantMsg: `duplicate slug "xian" in request: records 1 and 3`,
		},
		{
			name: "triplist slug",
			upsert: func() error {
				_, err := st.UpsertTriplists(ctx, []domain.Triplist{{Slug: "hotpot"}, {Slug: "hotpot"}})
				return err
			},
			wantMsg: `duplicate slug "hotpot" in request: records 1 and 2`,
		},
		{
			name: "carousel title and link",
			upsert: func() error {
				_, err := st.UpsertCarouselItems(ctx, []domain.CarouselItem{
					{Title: "Pandas", LinkURL: "/a"},
					{Title: "Pandas", LinkURL: "/b"},
					{Title: "Pandas", LinkURL: "/a"},
				})
				return err
			},
			wantMsg: `duplicate key (title, link_url) "Pandas -> /a" in request: records 1 and 3`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.upsert()
			if err == nil || err.Error() != tt.wantMsg {
				t.Fatalf("error = %v, want %q", err, tt.wantMsg)
			}
			if got := core.MapError(err).Code; got != "DB001" {
				t.Errorf("MapError().Code = %s, want DB001", got)
			}
		})
	}
}

func TestDescribePgError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505", ConstraintName: "cities_slug_key"}, wantCode: "DB001"},
		{name: "check violation", err: &pgconn.PgError{Code: "23514", ConstraintName: "triplists_duration_days_check"}, wantCode: "VAL002"},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, wantCode: "DB007"},
		{name: "wrapped unique violation", err: fmt.Errorf("send: %w", &pgconn.PgError{Code: "23505"}), wantCode: "DB001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describePgError(tt.err)
			if !errors.Is(got, tt.err) {
				t.Errorf("describePgError() lost the original error: %v", got)
			}
			if code := core.MapError(got).Code; code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %s, want %s", got, code, tt.wantCode)
			}
		})
	}

	plain := errors.New("boom")
	if got := describePgError(plain); got != plain {
		t.Errorf("describePgError(non-pg) = %v, want the input unchanged", got)
	}
}

func TestImportLogFilter_Where(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	tests := []struct {
		name      string
		filter    ImportLogFilter
		wantWhere string
		wantArgs  []any
	}{
		{name: "empty", filter: ImportLogFilter{Limit: 10}},
		{
			name:      "resource",
			filter:    ImportLogFilter{Resource: "cities"},
			wantWhere: " WHERE resource = $1",
			wantArgs:  []any{"cities"},
		},
		{
			name:      "all fields",
			filter:    ImportLogFilter{Resource: "carousel", From: from, To: to},
			wantWhere: " WHERE resource = $1 AND created_at >= $2 AND created_at <= $3",
			wantArgs:  []any{"carousel", from, to},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.filter.where()
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if diff := cmp.Diff(tt.wantArgs, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunRetention_Disabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		New(nil).RunRetention(context.Background(), RetentionConfig{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunRetention with zero KeepFor did not return")
	}
}

// ============================================================================
// Postgres Tests (set TEST_DATABASE_URL to run)
// ============================================================================

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, url, PoolOptions{MaxConns: 4, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: time.Minute})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(pool.Close)

	st := New(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	for _, table := range []string{"cities", "triplists", "carousel_items", "import_log"} {
		if _, err := pool.Exec(ctx, "TRUNCATE "+table); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return st
}

func TestPostgres_UpsertCities(t *testing.T) {
	st := openTestStore(t)
	ctx := core.ContextWithOrigin(context.Background(), core.Origin{IPAddress: "203.0.113.9", RequestID: "req-1"})

	first := []domain.City{
		{Name: "Chengdu", Slug: "chengdu", Province: "Sichuan"},
		{Name: "Harbin", Slug: "harbin", Province: "Heilongjiang"},
	}
	res, err := st.UpsertCities(ctx, first)
	if err != nil {
		t.Fatalf("UpsertCities() error = %v", err)
	}
	if diff := cmp.Diff(core.BulkResult{Count: 2, Created: 2}, res); diff != "" {
		t.Errorf("first result mismatch (-want +got):\n%s", diff)
	}

	second := []domain.City{
		{Name: "Chengdu", Slug: "chengdu", Province: "Sichuan", Featured: true},
		{Name: "Xi'an", Slug: "xian", Province: "Shaanxi"},
	}
	res, err = st.UpsertCities(ctx, second)
	if err != nil {
		t.Fatalf("UpsertCities() error = %v", err)
	}
	if diff := cmp.Diff(core.BulkResult{Count: 2, Created: 1, Updated: 1}, res); diff != "" {
		t.Errorf("second result mismatch (-want +got):\n%s", diff)
	}

	entries, err := st.ListImports(ctx, ImportLogFilter{Resource: "cities"})
	if err != nil {
		t.Fatalf("ListImports() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ListImports() returned %d entries, want 2", len(entries))
	}
	if e := entries[0]; e.Created != 1 || e.Updated != 1 || e.IPAddress != "203.0.113.9" || e.RequestID != "req-1" {
		t.Errorf("newest entry = %+v", e)
	}

	n, err := st.CountImports(ctx, ImportLogFilter{})
	if err != nil || n != 2 {
		t.Errorf("CountImports() = %d, %v, want 2", n, err)
	}
}

func TestPostgres_CheckConstraintRollsBack(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.UpsertTriplists(ctx, []domain.Triplist{
		{Title: "Food", Slug: "food", CitySlug: "chengdu", Category: "food", DurationDays: 1},
		{Title: "Bad", Slug: "bad", CitySlug: "chengdu", Category: "food", DurationDays: 0},
	})
	if err == nil {
		t.Fatal("UpsertTriplists() accepted duration_days 0")
	}
	if code := core.MapError(err).Code; code != "VAL002" {
		t.Errorf("MapError().Code = %s, want VAL002", code)
	}

	if n, _ := st.CountImports(ctx, ImportLogFilter{}); n != 0 {
		t.Errorf("failed import left %d history entries", n)
	}
	res, err := st.UpsertTriplists(ctx, []domain.Triplist{
		{Title: "Food", Slug: "food", CitySlug: "chengdu", Category: "food", DurationDays: 1},
	})
	if err != nil {
		t.Fatalf("UpsertTriplists() error = %v", err)
	}
	if res.Created != 1 {
		t.Errorf("Created = %d, want 1: the failed batch should have rolled back", res.Created)
	}
}

func TestPostgres_PurgeImports(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := range 3 {
		item := domain.CarouselItem{Title: fmt.Sprintf("Slide %d", i), ImageURL: "https://img.example.com/a.jpg", Active: true}
		if _, err := st.UpsertCarouselItems(ctx, []domain.CarouselItem{item}); err != nil {
			t.Fatalf("UpsertCarouselItems() error = %v", err)
		}
	}

	purged, err := st.PurgeImports(ctx, time.Now().Add(time.Minute), 2)
	if err != nil {
		t.Fatalf("PurgeImports() error = %v", err)
	}
	if purged != 3 {
		t.Errorf("PurgeImports() = %d, want 3", purged)
	}
}
