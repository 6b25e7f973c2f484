// Package store persists links, events, and raw scrape records in Postgres.
//
// All coordination between pipeline stages happens through conditional SQL
// statements here: claim-by-UPDATE for worker exclusivity and
// insert-ignore-on-conflict for at-most-once events. No external locks.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sells-group/linkpipe/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// ClassifySummary reports what a classify pass did. Observability only,
// never control flow.
type ClassifySummary struct {
	NewClassified int64 `json:"new_classified"`
	QueuedTotal   int64 `json:"queued_total"`
	EventsTotal   int64 `json:"events_total"`
}

// RouteCandidate is a link whose link.routed event was just recorded and
// which must therefore be dispatched exactly once.
type RouteCandidate struct {
	LinkID         int64
	URL            string
	Classification model.Classification
}

// UpsertSummary reports an ingestion CSV import.
type UpsertSummary struct {
	RowsLoaded int64  `json:"rows_loaded"`
	Upserted   int64  `json:"upserted"`
	BackupCSV  string `json:"backup_csv,omitempty"`
}

// Store is the persistence interface for the link pipeline.
type Store interface {
	// Migrate applies the idempotent schema. Safe to run repeatedly.
	Migrate(ctx context.Context) error

	// UpsertLinks loads parsed sheet rows into linkedin_links keyed by
	// url_canonical, updating metadata only, and records provenance.
	UpsertLinks(ctx context.Context, rows []model.SheetRow) (*UpsertSummary, error)

	// BackupRecent writes a CSV of links touched within the window.
	BackupRecent(ctx context.Context, dir string, window time.Duration) (string, error)

	// ClassifyAndQueue migrates, classifies links still in status new, emits
	// link.new / link.classified events, and promotes new links to queued.
	// One transaction: all or nothing.
	ClassifyAndQueue(ctx context.Context) (*ClassifySummary, error)

	// RouteCandidates selects up to limit queued, classified, due links with
	// no link.routed event, records the event, and returns only links whose
	// event insert succeeded.
	RouteCandidates(ctx context.Context, limit int) ([]RouteCandidate, error)

	// ClaimLink transitions a link to scraping iff it is queued or error and
	// its next_attempt_at has elapsed. Returns false when the link was not
	// eligible: another worker won, or the backoff has not passed.
	ClaimLink(ctx context.Context, linkID int64) (bool, error)

	// MarkScraped upserts the raw scrape record and finishes the link.
	MarkScraped(ctx context.Context, raw model.RawScrape) error

	// MarkFailed records a scrape failure with flat backoff. When
	// maxAttempts > 0 and the attempt count reaches it, the link goes dead.
	MarkFailed(ctx context.Context, linkID int64, errMsg string, backoff time.Duration, maxAttempts int) error

	// ReclaimStale requeues scraping links whose claim is older than ttl.
	ReclaimStale(ctx context.Context, ttl time.Duration) (int64, error)

	// Observability
	GetLink(ctx context.Context, linkID int64) (*model.Link, error)
	CountByStatus(ctx context.Context) (map[model.LinkStatus]int64, error)
	CountEvents(ctx context.Context) (int64, error)

	Close() error
}
