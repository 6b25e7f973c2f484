// Package monitoring snapshots pipeline health and raises threshold alerts.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/linkpipe/internal/model"
	"github.com/sells-group/linkpipe/internal/queue"
	"github.com/sells-group/linkpipe/internal/store"
)

// MetricsSnapshot holds a point-in-time view of the link pipeline.
type MetricsSnapshot struct {
	// Link counts by lifecycle status.
	StatusCounts map[model.LinkStatus]int64 `json:"status_counts"`
	// EventsTotal is the size of the event log.
	EventsTotal int64 `json:"events_total"`
	// Pending tasks per scrape queue.
	JobQueueDepth  int64 `json:"job_queue_depth"`
	PostQueueDepth int64 `json:"post_queue_depth"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store and the task broker.
type Collector struct {
	store  store.Store
	broker queue.Broker
}

// NewCollector creates a metrics collector. broker may be nil when queue
// depths are not reachable, e.g. in one-shot CLI commands.
func NewCollector(st store.Store, broker queue.Broker) *Collector {
	return &Collector{store: st, broker: broker}
}

// Collect gathers a snapshot. Queue depth failures degrade to -1 rather
// than failing the snapshot; the store counts are the primary signal.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{CollectedAt: time.Now().UTC()}

	counts, err := c.store.CountByStatus(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count links by status")
	}
	snap.StatusCounts = counts

	events, err := c.store.CountEvents(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count events")
	}
	snap.EventsTotal = events

	snap.JobQueueDepth = c.queueDepth(ctx, model.QueueScrapeJob)
	snap.PostQueueDepth = c.queueDepth(ctx, model.QueueScrapePost)

	return snap, nil
}

func (c *Collector) queueDepth(ctx context.Context, name string) int64 {
	if c.broker == nil {
		return -1
	}
	n, err := c.broker.Len(ctx, name)
	if err != nil {
		return -1
	}
	return n
}
