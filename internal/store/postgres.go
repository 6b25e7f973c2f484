package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a Postgres store with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*Postgres, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Postgres{pool: pool, closeFn: pool.Close}, nil
}

// postgresMigration is additive and idempotent: new columns arrive with
// defaults, tables and indexes guard with IF NOT EXISTS. Re-running it
// against a live database is safe.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS linkedin_links (
	id  BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL
);

-- Orchestration columns.
ALTER TABLE linkedin_links
	ADD COLUMN IF NOT EXISTS classification TEXT CHECK (classification IN ('job','post','unknown')) DEFAULT 'unknown',
	ADD COLUMN IF NOT EXISTS status TEXT CHECK (status IN ('new','queued','scraping','scraped','staged','extracted','error','dead')) DEFAULT 'new',
	ADD COLUMN IF NOT EXISTS attempt_count INT DEFAULT 0,
	ADD COLUMN IF NOT EXISTS next_attempt_at TIMESTAMPTZ DEFAULT now(),
	ADD COLUMN IF NOT EXISTS last_error TEXT,
	ADD COLUMN IF NOT EXISTS claimed_at TIMESTAMPTZ;

-- Provenance columns from ingestion.
ALTER TABLE linkedin_links
	ADD COLUMN IF NOT EXISTS sheet_name TEXT,
	ADD COLUMN IF NOT EXISTS tab TEXT,
	ADD COLUMN IF NOT EXISTS row_number INT,
	ADD COLUMN IF NOT EXISTS source TEXT,
	ADD COLUMN IF NOT EXISTS category TEXT,
	ADD COLUMN IF NOT EXISTS date_in_source TEXT,
	ADD COLUMN IF NOT EXISTS extracted_at TIMESTAMPTZ DEFAULT now();

-- Canonical URL identity: lowercase, generated, unique. Never written
-- directly.
ALTER TABLE linkedin_links
	ADD COLUMN IF NOT EXISTS url_canonical TEXT GENERATED ALWAYS AS (lower(url)) STORED;
CREATE UNIQUE INDEX IF NOT EXISTS ux_linkedin_links_canonical ON linkedin_links (url_canonical);

-- Events: append-only, at most one row per (kind, link_id).
CREATE TABLE IF NOT EXISTS events (
	id         BIGSERIAL PRIMARY KEY,
	kind       TEXT NOT NULL,
	link_id    BIGINT NOT NULL REFERENCES linkedin_links(id) ON DELETE CASCADE,
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (kind, link_id)
);
CREATE INDEX IF NOT EXISTS ix_events_link ON events(link_id, created_at DESC);

-- Ingestion source trail.
CREATE TABLE IF NOT EXISTS link_provenance (
	id            BIGSERIAL PRIMARY KEY,
	link_id       BIGINT NOT NULL REFERENCES linkedin_links(id) ON DELETE CASCADE,
	sheet_name    TEXT,
	tab           TEXT,
	row_number    INT,
	discovered_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (link_id, sheet_name, tab, row_number)
);
CREATE INDEX IF NOT EXISTS ix_link_provenance_link ON link_provenance(link_id);

-- Raw scrape output: at most one record per link, overwritten on re-scrape.
CREATE TABLE IF NOT EXISTS linkedin_jobs_raw (
	id               BIGSERIAL PRIMARY KEY,
	link_id          BIGINT NOT NULL UNIQUE REFERENCES linkedin_links(id) ON DELETE CASCADE,
	url              TEXT,
	role_title       TEXT,
	company_name     TEXT,
	location         TEXT,
	posted_time      TEXT,
	status           TEXT,
	description_text TEXT,
	html_path        TEXT,
	screenshot_path  TEXT,
	scrape_status    TEXT,
	scraped_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies the idempotent schema.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
