package store

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/linkpipe/internal/model"
)

// routeSQL selects eligible links, marks them routed, and returns only the
// ones this invocation actually marked. The ON CONFLICT DO NOTHING on the
// link.routed event is the idempotency guard: under concurrent router
// passes each link comes back from exactly one of them.
var routeSQL = fmt.Sprintf(`
WITH cand AS (
	SELECT l.id, l.url, COALESCE(l.classification, 'unknown') AS classification
	FROM linkedin_links l
	LEFT JOIN events e
	  ON e.link_id = l.id AND e.kind = '%[1]s'
	WHERE e.id IS NULL
	  AND COALESCE(l.status, 'new') = 'queued'
	  AND COALESCE(l.classification, 'unknown') IN ('job', 'post')
	  AND now() >= COALESCE(l.next_attempt_at, now())
	ORDER BY l.id
	LIMIT $1
),
mark AS (
	INSERT INTO events(kind, link_id, payload)
	SELECT '%[1]s', c.id, jsonb_build_object('url', c.url, 'classification', c.classification)
	FROM cand c
	ON CONFLICT (kind, link_id) DO NOTHING
	RETURNING link_id
)
SELECT l.id, l.url, COALESCE(l.classification, 'unknown') AS classification
FROM linkedin_links l
JOIN mark m ON m.link_id = l.id
ORDER BY l.id
`, model.EventLinkRouted)

// RouteCandidates runs one bounded routing batch. FIFO by id within the
// batch; never blocks or loops.
func (s *Postgres) RouteCandidates(ctx context.Context, limit int) ([]RouteCandidate, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, routeSQL, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: route candidates")
	}
	defer rows.Close()

	var out []RouteCandidate
	for rows.Next() {
		var c RouteCandidate
		if err := rows.Scan(&c.LinkID, &c.URL, &c.Classification); err != nil {
			return nil, eris.Wrap(err, "postgres: route candidates: scan")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: route candidates: rows")
	}
	return out, nil
}
