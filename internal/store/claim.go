package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/linkpipe/internal/model"
)

// ClaimLink is the mutual-exclusion primitive for scrape workers: a
// conditional UPDATE that succeeds for exactly one caller. Zero rows
// updated means the link was already claimed, already finished, or its
// backoff has not elapsed. A clean no-op for the loser, not an error.
func (s *Postgres) ClaimLink(ctx context.Context, linkID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE linkedin_links
		SET status = 'scraping', claimed_at = now()
		WHERE id = $1
		  AND COALESCE(status, 'new') IN ('queued', 'error')
		  AND COALESCE(next_attempt_at, now()) <= now()`, linkID)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: claim link %d", linkID)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkScraped upserts the raw scrape record keyed by link_id and finishes
// the link. Re-scraping overwrites the previous record.
func (s *Postgres) MarkScraped(ctx context.Context, raw model.RawScrape) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: mark scraped: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO linkedin_jobs_raw
			(link_id, url, role_title, company_name, location, posted_time, status, description_text, html_path, screenshot_path, scrape_status, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (link_id) DO UPDATE
		  SET url              = EXCLUDED.url,
		      role_title       = EXCLUDED.role_title,
		      company_name     = EXCLUDED.company_name,
		      location         = EXCLUDED.location,
		      posted_time      = EXCLUDED.posted_time,
		      status           = EXCLUDED.status,
		      description_text = EXCLUDED.description_text,
		      html_path        = EXCLUDED.html_path,
		      screenshot_path  = EXCLUDED.screenshot_path,
		      scrape_status    = EXCLUDED.scrape_status,
		      scraped_at       = now()`,
		raw.LinkID, raw.URL, raw.RoleTitle, raw.CompanyName, raw.Location,
		raw.PostedTime, raw.Status, raw.DescriptionText, raw.HTMLPath,
		raw.ScreenshotPath, raw.ScrapeStatus); err != nil {
		return eris.Wrapf(err, "postgres: mark scraped: upsert raw for link %d", raw.LinkID)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE linkedin_links
		SET status = 'scraped', last_error = NULL, claimed_at = NULL
		WHERE id = $1`, raw.LinkID); err != nil {
		return eris.Wrapf(err, "postgres: mark scraped: update link %d", raw.LinkID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: mark scraped: commit")
	}
	return nil
}

// MarkFailed records a scrape failure: flat backoff via next_attempt_at,
// attempt_count incremented, error text kept. When maxAttempts > 0 and
// the new attempt count reaches it, the link goes dead instead of error
// and stops retrying.
func (s *Postgres) MarkFailed(ctx context.Context, linkID int64, errMsg string, backoff time.Duration, maxAttempts int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE linkedin_links
		SET status = CASE
		               WHEN $4::int > 0 AND COALESCE(attempt_count, 0) + 1 >= $4::int THEN 'dead'
		               ELSE 'error'
		             END,
		    attempt_count   = COALESCE(attempt_count, 0) + 1,
		    last_error      = $2,
		    next_attempt_at = now() + make_interval(secs => $3),
		    claimed_at      = NULL
		WHERE id = $1`, linkID, errMsg, backoff.Seconds(), maxAttempts)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark failed: link %d", linkID)
	}
	return nil
}

// ReclaimStale requeues links stuck in scraping longer than ttl. A worker
// that never returned leaves its claim behind; this watchdog puts the
// link back in play.
func (s *Postgres) ReclaimStale(ctx context.Context, ttl time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE linkedin_links
		SET status = 'queued', claimed_at = NULL
		WHERE status = 'scraping'
		  AND claimed_at IS NOT NULL
		  AND claimed_at < now() - make_interval(secs => $1)`, ttl.Seconds())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reclaim stale")
	}
	return tag.RowsAffected(), nil
}
