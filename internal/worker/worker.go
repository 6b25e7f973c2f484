// Package worker consumes scrape tasks, drives the scraper, and records
// outcomes against the link state machine.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/linkpipe/internal/model"
	"github.com/sells-group/linkpipe/internal/queue"
	"github.com/sells-group/linkpipe/internal/resilience"
	"github.com/sells-group/linkpipe/internal/scrape"
	"github.com/sells-group/linkpipe/internal/store"
)

// Options tunes worker behavior.
type Options struct {
	// Concurrency is the number of consumer goroutines.
	Concurrency int
	// Backoff is the flat delay before a failed link is retried.
	Backoff time.Duration
	// MaxAttempts sends a link to dead after this many failures. 0 means
	// retry forever.
	MaxAttempts int
	// PopWait bounds each blocking queue read so shutdown stays prompt.
	PopWait time.Duration
}

// Worker claims links, scrapes them, and persists the result.
type Worker struct {
	store     store.Store
	broker    queue.Broker
	scraper   scrape.Scraper
	artifacts Artifacts
	breaker   *resilience.CircuitBreaker
	opts      Options
}

// New creates a worker. A shared circuit breaker stops all consumers from
// hammering LinkedIn during a block storm; tripped tasks fail with the
// normal flat backoff and come around again later.
func New(st store.Store, broker queue.Broker, scraper scrape.Scraper, artifacts Artifacts, opts Options) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 30 * time.Minute
	}
	if opts.PopWait <= 0 {
		opts.PopWait = 5 * time.Second
	}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     2 * time.Minute,
		OnStateChange: func(from, to resilience.CircuitState) {
			zap.L().Warn("scrape circuit state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Worker{store: st, broker: broker, scraper: scraper, artifacts: artifacts, breaker: breaker, opts: opts}
}

// Run consumes both scrape queues until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	zap.L().Info("worker starting",
		zap.Int("concurrency", w.opts.Concurrency),
		zap.Duration("backoff", w.opts.Backoff),
		zap.Int("max_attempts", w.opts.MaxAttempts))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.opts.Concurrency; i++ {
		g.Go(func() error {
			return w.consume(gctx)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consume(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		task, queueName, err := w.broker.Pop(ctx, w.opts.PopWait, model.QueueScrapeJob, model.QueueScrapePost)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			zap.L().Error("queue pop failed", zap.Error(err))
			continue
		}

		if err := w.Process(ctx, task, model.ClassificationFor(queueName)); err != nil {
			zap.L().Error("task processing failed",
				zap.Int64("link_id", task.LinkID),
				zap.Error(err))
		}
	}
}

// Process handles one task end to end: claim, scrape, record. A lost claim
// is a no-op. The scrape itself runs outside any database transaction so a
// slow page never holds a connection.
func (w *Worker) Process(ctx context.Context, task model.ScrapeTask, kind model.Classification) error {
	log := zap.L().With(
		zap.Int64("link_id", task.LinkID),
		zap.String("url", task.URL),
		zap.String("kind", string(kind)))

	claimed, err := w.store.ClaimLink(ctx, task.LinkID)
	if err != nil {
		return eris.Wrapf(err, "worker: claim link %d", task.LinkID)
	}
	if !claimed {
		// Another worker won, the backoff has not elapsed, or the link
		// already finished. The task is consumed either way.
		log.Debug("claim not granted, skipping")
		return nil
	}

	res, err := resilience.ExecuteVal(ctx, w.breaker, func(ctx context.Context) (*scrape.Result, error) {
		return w.scraper.Scrape(ctx, task.URL, kind)
	})
	if err != nil {
		if markErr := w.store.MarkFailed(ctx, task.LinkID, err.Error(), w.opts.Backoff, w.opts.MaxAttempts); markErr != nil {
			return eris.Wrapf(markErr, "worker: mark link %d failed", task.LinkID)
		}
		log.Warn("scrape failed", zap.Error(err))
		return nil
	}

	htmlPath, shotPath, err := w.artifacts.Save(task.LinkID, res.HTML, res.Screenshot)
	if err != nil {
		if markErr := w.store.MarkFailed(ctx, task.LinkID, err.Error(), w.opts.Backoff, w.opts.MaxAttempts); markErr != nil {
			return eris.Wrapf(markErr, "worker: mark link %d failed", task.LinkID)
		}
		return eris.Wrapf(err, "worker: save artifacts for link %d", task.LinkID)
	}

	raw := model.RawScrape{
		LinkID:          task.LinkID,
		URL:             task.URL,
		RoleTitle:       res.Title,
		CompanyName:     res.Company,
		Location:        res.Location,
		PostedTime:      res.PostedTime,
		Status:          res.JobStatus,
		DescriptionText: res.Description,
		HTMLPath:        htmlPath,
		ScreenshotPath:  shotPath,
		ScrapeStatus:    "success",
		ScrapedAt:       time.Now().UTC(),
	}
	if err := w.store.MarkScraped(ctx, raw); err != nil {
		return eris.Wrapf(err, "worker: mark link %d scraped", task.LinkID)
	}

	log.Info("link scraped",
		zap.String("role", res.Title),
		zap.String("company", res.Company))
	return nil
}

// Reclaim requeues links whose scraping claim outlived ttl. Run it
// periodically so crashed workers cannot strand links.
func (w *Worker) Reclaim(ctx context.Context, ttl time.Duration) error {
	n, err := w.store.ReclaimStale(ctx, ttl)
	if err != nil {
		return eris.Wrap(err, "worker: reclaim stale claims")
	}
	if n > 0 {
		zap.L().Warn("requeued stale claims", zap.Int64("count", n))
	}
	return nil
}
