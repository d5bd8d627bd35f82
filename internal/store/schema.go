package store

// schemaStatements create the content tables when they are missing. They are
// idempotent and run once at startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cities (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		slug        TEXT NOT NULL UNIQUE,
		province    TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url   TEXT NOT NULL DEFAULT '',
		featured    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS triplists (
		id            BIGSERIAL PRIMARY KEY,
		title         TEXT NOT NULL,
		slug          TEXT NOT NULL UNIQUE,
		city_slug     TEXT NOT NULL,
		category      TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		duration_days INTEGER NOT NULL DEFAULT 1 CHECK (duration_days >= 1),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS triplists_city_slug_idx ON triplists (city_slug)`,
	`CREATE TABLE IF NOT EXISTS carousel_items (
		id         BIGSERIAL PRIMARY KEY,
		title      TEXT NOT NULL,
		subtitle   TEXT NOT NULL DEFAULT '',
		image_url  TEXT NOT NULL,
		link_url   TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (title, link_url)
	)`,
	`CREATE TABLE IF NOT EXISTS import_log (
		id            UUID PRIMARY KEY,
		resource      TEXT NOT NULL,
		record_count  INTEGER NOT NULL,
		created_count INTEGER NOT NULL,
		updated_count INTEGER NOT NULL,
		ip_address    TEXT NOT NULL DEFAULT '',
		user_agent    TEXT NOT NULL DEFAULT '',
		request_id    TEXT NOT NULL DEFAULT '',
		duration_ms   BIGINT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS import_log_created_at_idx ON import_log (created_at DESC)`,
}

// xmax is zero only for rows inserted by the current statement, which lets
// one upsert report whether it created or updated.
const (
	upsertCitySQL = `
		INSERT INTO cities (name, slug, province, description, image_url, featured)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE SET
			name        = EXCLUDED.name,
			province    = EXCLUDED.province,
			description = EXCLUDED.description,
			image_url   = EXCLUDED.image_url,
			featured    = EXCLUDED.featured,
			updated_at  = now()
		RETURNING (xmax = 0)`

	upsertTriplistSQL = `
		INSERT INTO triplists (title, slug, city_slug, category, description, duration_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE SET
			title         = EXCLUDED.title,
			city_slug     = EXCLUDED.city_slug,
			category      = EXCLUDED.category,
			description   = EXCLUDED.description,
			duration_days = EXCLUDED.duration_days,
			updated_at    = now()
		RETURNING (xmax = 0)`

	upsertCarouselSQL = `
		INSERT INTO carousel_items (title, subtitle, image_url, link_url, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (title, link_url) DO UPDATE SET
			subtitle   = EXCLUDED.subtitle,
			image_url  = EXCLUDED.image_url,
			sort_order = EXCLUDED.sort_order,
			active     = EXCLUDED.active,
			updated_at = now()
		RETURNING (xmax = 0)`
)

const (
	insertImportLogSQL = `
		INSERT INTO import_log (id, resource, record_count, created_count, updated_count,
			ip_address, user_agent, request_id, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	selectImportLogSQL = `
		SELECT id::text, resource, record_count, created_count, updated_count,
			ip_address, user_agent, request_id, duration_ms, created_at
		FROM import_log`

	purgeImportLogSQL = `
		DELETE FROM import_log
		WHERE id IN (SELECT id FROM import_log WHERE created_at < $1 LIMIT $2)`
)
