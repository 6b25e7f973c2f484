package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/linkpipe/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the recurring pipeline, router, and watchdog jobs",
	Long:  "Starts a cron beat that runs the full pipeline, sweeps routable links, and requeues stale scraping claims on their configured schedules. Blocks until SIGINT or SIGTERM.",
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

		p, err := newPipeline(e)
		if err != nil {
			return err
		}
		router := newRouterFromConfig(e)

		sched := scheduler.New(cfg.Scheduler.JobTimeout)
		if err := sched.Add(cfg.Scheduler.PipelineCron, "pipeline", func(ctx context.Context) error {
			_, err := p.Run(ctx)
			return err
		}); err != nil {
			return err
		}
		if err := sched.Add(cfg.Scheduler.RouterCron, "router", func(ctx context.Context) error {
			_, err := router.Sweep(ctx)
			return err
		}); err != nil {
			return err
		}
		if err := sched.Add(cfg.Scheduler.ReclaimCron, "reclaim", func(ctx context.Context) error {
			n, err := e.Store.ReclaimStale(ctx, cfg.Worker.ClaimTTL)
			if err != nil {
				return err
			}
			if n > 0 {
				zap.L().Warn("requeued stale claims", zap.Int64("count", n))
			}
			return nil
		}); err != nil {
			return err
		}

		sched.Start()
		zap.L().Info("scheduler started")
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sched.Stop(stopCtx)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
