package store

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/linkpipe/internal/model"
)

// classifySQL performs the whole classify pass. Every statement is
// idempotent: events insert-ignore on (kind, link_id), and both UPDATEs
// only touch rows still in status new, so a concurrent or repeated pass
// simply finds nothing left to do.
var classifySQL = fmt.Sprintf(`
INSERT INTO events(kind, link_id, payload)
SELECT '%s', l.id, jsonb_build_object('url', l.url, 'sheet_name', l.sheet_name, 'tab', l.tab)
FROM linkedin_links l
WHERE COALESCE(l.status, 'new') = 'new'
ON CONFLICT (kind, link_id) DO NOTHING;

UPDATE linkedin_links l
SET classification = CASE
                        WHEN l.category = 'jobs'  THEN 'job'
                        WHEN l.category = 'posts' THEN 'post'
                        ELSE 'unknown'
                     END
WHERE COALESCE(l.status, 'new') = 'new';

INSERT INTO events(kind, link_id, payload)
SELECT '%s', c.id, jsonb_build_object('classification', c.classification, 'category', c.category)
FROM linkedin_links c
WHERE COALESCE(c.status, 'new') = 'new'
ON CONFLICT (kind, link_id) DO NOTHING;

UPDATE linkedin_links
SET status = 'queued', attempt_count = 0, next_attempt_at = now()
WHERE COALESCE(status, 'new') = 'new';
`, model.EventLinkNew, model.EventLinkClassified)

// ClassifyAndQueue runs the migrate + classify + queue pass in a single
// transaction. Either the whole pass commits or none of it does; partial
// classification is never visible to concurrent readers.
func (s *Postgres) ClassifyAndQueue(ctx context.Context) (*ClassifySummary, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: classify: begin tx")
	}
	defer tx.Rollback(ctx)

	// Schema first: the classify pass may run against a database the
	// ingestor has only partially prepared.
	if _, err := tx.Exec(ctx, postgresMigration); err != nil {
		return nil, eris.Wrap(err, "postgres: classify: migrate")
	}

	var preNew int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM linkedin_links WHERE COALESCE(status,'new') = 'new'`).Scan(&preNew); err != nil {
		return nil, eris.Wrap(err, "postgres: classify: count new")
	}

	if _, err := tx.Exec(ctx, classifySQL); err != nil {
		return nil, eris.Wrap(err, "postgres: classify: pass")
	}

	var queued, events int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM linkedin_links WHERE status = 'queued'`).Scan(&queued); err != nil {
		return nil, eris.Wrap(err, "postgres: classify: count queued")
	}
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&events); err != nil {
		return nil, eris.Wrap(err, "postgres: classify: count events")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: classify: commit")
	}

	return &ClassifySummary{NewClassified: preNew, QueuedTotal: queued, EventsTotal: events}, nil
}
