package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/linkpipe/internal/scrape"
	"github.com/sells-group/linkpipe/internal/worker"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume the scrape queues with a headless browser",
	Long:  "Runs scrape consumers against the job and post queues. A claim watchdog requeues links stranded by crashed workers. Stops cleanly on SIGINT or SIGTERM.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e := &env{}
		defer e.Close()
		if err := e.initStore(ctx); err != nil {
			return err
		}
		if err := e.initBroker(ctx); err != nil {
			return err
		}

		scraper := scrape.NewBrowserScraper(scrape.Options{
			Headless:    cfg.Scrape.Headless,
			UserAgent:   cfg.Scrape.UserAgent,
			NavTimeout:  cfg.Scrape.NavTimeout,
			SettleDelay: cfg.Scrape.SettleDelay,
		})

		concurrency := cfg.Worker.Concurrency
		if workerConcurrency > 0 {
			concurrency = workerConcurrency
		}

		w := worker.New(e.Store, e.Broker, scraper,
			worker.Artifacts{Root: cfg.Worker.ArtifactDir},
			worker.Options{
				Concurrency: concurrency,
				Backoff:     cfg.Worker.Backoff,
				MaxAttempts: cfg.Worker.MaxAttempts,
			})

		// Stale claims belong to workers that died mid-scrape. Sweep them
		// on startup and every few minutes after.
		if err := w.Reclaim(ctx, cfg.Worker.ClaimTTL); err != nil {
			zap.L().Warn("initial claim sweep failed", zap.Error(err))
		}
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := w.Reclaim(ctx, cfg.Worker.ClaimTTL); err != nil {
						zap.L().Warn("claim sweep failed", zap.Error(err))
					}
				}
			}
		}()

		err := w.Run(ctx)
		zap.L().Info("worker stopped")
		return err
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "consumer goroutines (default from config)")
	rootCmd.AddCommand(workerCmd)
}
