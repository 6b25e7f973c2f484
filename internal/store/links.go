package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/linkpipe/internal/model"
)

var tmpLinkColumns = []string{"date", "company", "role", "location", "url", "sheet_name", "tab_title", "row_number"}

// UpsertLinks loads sheet rows through a temp table and upserts them into
// linkedin_links keyed by url_canonical. Re-ingesting a known URL updates
// metadata only; status and attempt_count are never touched, so a link
// already moving through the pipeline is not reset. Provenance rows are
// recorded idempotently in the same transaction.
func (s *Postgres) UpsertLinks(ctx context.Context, rows []model.SheetRow) (*UpsertSummary, error) {
	if len(rows) == 0 {
		return &UpsertSummary{}, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert links: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE tmp_links (
			date TEXT, company TEXT, role TEXT, location TEXT, url TEXT,
			sheet_name TEXT, tab_title TEXT, row_number INT
		) ON COMMIT DROP`); err != nil {
		return nil, eris.Wrap(err, "postgres: upsert links: create temp table")
	}

	copyRows := make([][]any, 0, len(rows))
	for _, r := range rows {
		copyRows = append(copyRows, []any{r.Date, r.Company, r.Role, r.Location, r.URL, r.SheetName, r.TabTitle, r.RowNumber})
	}
	loaded, err := tx.CopyFrom(ctx, pgx.Identifier{"tmp_links"}, tmpLinkColumns, pgx.CopyFromRows(copyRows))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert links: COPY into temp table")
	}

	// Metadata-only update on conflict. Category is derived from URL shape
	// at ingestion time; classification is assigned later from it.
	tag, err := tx.Exec(ctx, `
		INSERT INTO linkedin_links (url, sheet_name, row_number, extracted_at, source, tab, date_in_source, category)
		SELECT url, sheet_name, row_number, now(), CONCAT('google_sheet:', COALESCE(sheet_name, '')), tab_title, date,
		       CASE WHEN url LIKE 'https://www.linkedin.com/posts%' THEN 'posts'
		            WHEN url LIKE 'https://www.linkedin.com/jobs%'  THEN 'jobs'
		            WHEN url LIKE 'https://www.linkedin.com/%'      THEN 'other'
		            ELSE 'external' END
		FROM tmp_links
		ON CONFLICT (url_canonical) DO UPDATE
		  SET sheet_name     = EXCLUDED.sheet_name,
		      row_number     = EXCLUDED.row_number,
		      extracted_at   = now(),
		      source         = EXCLUDED.source,
		      tab            = EXCLUDED.tab,
		      date_in_source = EXCLUDED.date_in_source,
		      category       = EXCLUDED.category`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert links: INSERT ON CONFLICT")
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO link_provenance (link_id, sheet_name, tab, row_number, discovered_at)
		SELECT l.id, t.sheet_name, t.tab_title, t.row_number, now()
		FROM tmp_links t
		JOIN linkedin_links l ON l.url_canonical = lower(t.url)
		ON CONFLICT DO NOTHING`); err != nil {
		return nil, eris.Wrap(err, "postgres: upsert links: provenance")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: upsert links: commit")
	}

	return &UpsertSummary{RowsLoaded: loaded, Upserted: tag.RowsAffected()}, nil
}

// BackupRecent exports links touched within the window to a timestamped
// CSV under dir and returns its path.
func (s *Postgres) BackupRecent(ctx context.Context, dir string, window time.Duration) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "postgres: backup: create dir %s", dir)
	}
	path := filepath.Join(dir, fmt.Sprintf("links_inserted_%s.csv", time.Now().UTC().Format("20060102-150405")))

	rows, err := s.pool.Query(ctx, `
		SELECT id, url, COALESCE(sheet_name,''), COALESCE(row_number,0), extracted_at,
		       COALESCE(source,''), COALESCE(tab,''), COALESCE(date_in_source,''), COALESCE(category,'')
		FROM linkedin_links
		WHERE extracted_at > now() - make_interval(secs => $1)
		ORDER BY id`, window.Seconds())
	if err != nil {
		return "", eris.Wrap(err, "postgres: backup: query recent")
	}
	defer rows.Close()

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: backup: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "url", "sheet_name", "row_number", "extracted_at", "source", "tab", "date_in_source", "category"}); err != nil {
		return "", eris.Wrap(err, "postgres: backup: write header")
	}
	for rows.Next() {
		var (
			id          int64
			rowNumber   int
			extractedAt time.Time

			url, sheetName, source, tab, dateInSource, category string
		)
		if err := rows.Scan(&id, &url, &sheetName, &rowNumber, &extractedAt, &source, &tab, &dateInSource, &category); err != nil {
			return "", eris.Wrap(err, "postgres: backup: scan")
		}
		rec := []string{
			strconv.FormatInt(id, 10), url, sheetName, strconv.Itoa(rowNumber),
			extractedAt.UTC().Format(time.RFC3339), source, tab, dateInSource, category,
		}
		if err := w.Write(rec); err != nil {
			return "", eris.Wrap(err, "postgres: backup: write row")
		}
	}
	if err := rows.Err(); err != nil {
		return "", eris.Wrap(err, "postgres: backup: rows")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", eris.Wrap(err, "postgres: backup: flush")
	}

	return path, nil
}

// GetLink fetches a single link by id. Returns nil when not found.
func (s *Postgres) GetLink(ctx context.Context, linkID int64) (*model.Link, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, url, url_canonical, COALESCE(classification,'unknown'), COALESCE(status,'new'),
		       COALESCE(attempt_count,0), COALESCE(next_attempt_at, now()), COALESCE(last_error,''),
		       COALESCE(sheet_name,''), COALESCE(tab,''), COALESCE(row_number,0), COALESCE(source,''),
		       COALESCE(category,''), COALESCE(date_in_source,''), COALESCE(extracted_at, now())
		FROM linkedin_links WHERE id = $1`, linkID)

	var l model.Link
	err := row.Scan(&l.ID, &l.URL, &l.URLCanonical, &l.Classification, &l.Status,
		&l.AttemptCount, &l.NextAttemptAt, &l.LastError,
		&l.SheetName, &l.Tab, &l.RowNumber, &l.Source,
		&l.Category, &l.DateInSource, &l.ExtractedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get link %d", linkID)
	}
	return &l, nil
}

// CountByStatus returns link counts keyed by lifecycle status.
func (s *Postgres) CountByStatus(ctx context.Context) (map[model.LinkStatus]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT COALESCE(status,'new'), COUNT(*) FROM linkedin_links GROUP BY 1`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by status")
	}
	defer rows.Close()

	out := make(map[model.LinkStatus]int64)
	for rows.Next() {
		var status model.LinkStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: count by status: scan")
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: count by status: rows")
	}
	return out, nil
}

// CountEvents returns the total number of recorded events.
func (s *Postgres) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count events")
	}
	return n, nil
}
