package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/linkpipe/internal/model"
	"github.com/sells-group/linkpipe/internal/queue"
	"github.com/sells-group/linkpipe/internal/store"
)

// Router dispatches routable links to their scrape queues. The store marks
// each link routed before it is returned, so a link is handed to a queue at
// most once even when several routers sweep concurrently.
type Router struct {
	store     store.Store
	broker    queue.Broker
	batchSize int
}

// NewRouter creates a router with the given sweep batch size.
func NewRouter(st store.Store, broker queue.Broker, batchSize int) *Router {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Router{store: st, broker: broker, batchSize: batchSize}
}

// RouteSummary reports one sweep.
type RouteSummary struct {
	Candidates int `json:"candidates"`
	Jobs       int `json:"jobs"`
	Posts      int `json:"posts"`
	Failed     int `json:"failed"`
}

// Sweep routes one batch. A publish failure does not abort the sweep; the
// affected link keeps its routed event and needs operator attention, so it
// is logged at error level and counted.
func (r *Router) Sweep(ctx context.Context) (*RouteSummary, error) {
	cands, err := r.store.RouteCandidates(ctx, r.batchSize)
	if err != nil {
		return nil, eris.Wrap(err, "router: select candidates")
	}

	sum := &RouteSummary{Candidates: len(cands)}
	for _, c := range cands {
		queueName := model.QueueFor(c.Classification)
		if queueName == "" {
			// RouteCandidates filters on classification; reaching this
			// means the query and the model disagree.
			zap.L().Error("unroutable candidate",
				zap.Int64("link_id", c.LinkID),
				zap.String("classification", string(c.Classification)))
			sum.Failed++
			continue
		}

		task := model.ScrapeTask{LinkID: c.LinkID, URL: c.URL, Attempt: 1}
		if err := r.broker.Publish(ctx, queueName, task); err != nil {
			zap.L().Error("task publish failed",
				zap.Int64("link_id", c.LinkID),
				zap.String("queue", queueName),
				zap.Error(err))
			sum.Failed++
			continue
		}

		switch c.Classification {
		case model.ClassJob:
			sum.Jobs++
		case model.ClassPost:
			sum.Posts++
		}
	}

	if sum.Candidates > 0 {
		zap.L().Info("routing sweep complete",
			zap.Int("candidates", sum.Candidates),
			zap.Int("jobs", sum.Jobs),
			zap.Int("posts", sum.Posts),
			zap.Int("failed", sum.Failed))
	}
	return sum, nil
}
