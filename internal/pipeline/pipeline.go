// Package pipeline orchestrates the link lifecycle: harvest sources, bulk
// load the store, classify and queue, and route to the scrape queues.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/linkpipe/internal/config"
	"github.com/sells-group/linkpipe/internal/ingest"
	"github.com/sells-group/linkpipe/internal/store"
)

// Pipeline runs the ingestion half of the system end to end. Scraping is
// not part of a run; workers consume the queues on their own clock.
type Pipeline struct {
	cfg    *config.Config
	store  store.Store
	runner *ingest.Runner
	router *Router
}

// New creates a pipeline.
func New(cfg *config.Config, st store.Store, runner *ingest.Runner, router *Router) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, runner: runner, router: router}
}

// StageResult records one stage of a run.
type StageResult struct {
	Name     string         `json:"name"`
	OK       bool           `json:"ok"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RunResult is the outcome of a full pipeline run.
type RunResult struct {
	RunID  string        `json:"run_id"`
	Stages []StageResult `json:"stages"`
}

// Run executes ingest, upsert, backup, classify, and route in order. Each
// stage depends on its predecessor, so the first failure stops the run;
// completed stages keep their effects since every stage is idempotent.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline run starting")

	result := &RunResult{RunID: runID}

	stage := func(name string, fn func() (map[string]any, error)) error {
		start := time.Now()
		meta, err := fn()
		sr := StageResult{
			Name:     name,
			OK:       err == nil,
			Duration: time.Since(start).Milliseconds(),
			Metadata: meta,
		}
		if err != nil {
			sr.Error = err.Error()
			log.Error("stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", sr.Duration),
				zap.Error(err))
		} else {
			log.Info("stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", sr.Duration))
		}
		result.Stages = append(result.Stages, sr)
		return err
	}

	var rows int
	var csvPath string
	if err := stage("ingest", func() (map[string]any, error) {
		res, err := p.runner.Run(ctx)
		if err != nil {
			return nil, err
		}
		rows = len(res.Rows)
		csvPath = res.CSVPath
		return map[string]any{
			"harvested": res.Harvested,
			"rows":      rows,
			"csv":       csvPath,
		}, nil
	}); err != nil {
		return result, eris.Wrap(err, "pipeline: ingest")
	}

	if err := stage("upsert", func() (map[string]any, error) {
		parsed, err := ingest.ReadCSV(csvPath)
		if err != nil {
			return nil, err
		}
		sum, err := p.store.UpsertLinks(ctx, parsed)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"rows_loaded": sum.RowsLoaded,
			"upserted":    sum.Upserted,
		}, nil
	}); err != nil {
		return result, eris.Wrap(err, "pipeline: upsert")
	}

	if err := stage("backup", func() (map[string]any, error) {
		window := time.Duration(p.cfg.Ingest.WindowMinutes) * time.Minute
		path, err := p.store.BackupRecent(ctx, p.cfg.Ingest.BackupDir, window)
		if err != nil {
			return nil, err
		}
		return map[string]any{"backup_csv": path}, nil
	}); err != nil {
		return result, eris.Wrap(err, "pipeline: backup")
	}

	if err := stage("classify", func() (map[string]any, error) {
		sum, err := p.store.ClassifyAndQueue(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"new_classified": sum.NewClassified,
			"queued_total":   sum.QueuedTotal,
			"events_total":   sum.EventsTotal,
		}, nil
	}); err != nil {
		return result, eris.Wrap(err, "pipeline: classify")
	}

	if err := stage("route", func() (map[string]any, error) {
		sum, err := p.router.Sweep(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"candidates": sum.Candidates,
			"jobs":       sum.Jobs,
			"posts":      sum.Posts,
			"failed":     sum.Failed,
		}, nil
	}); err != nil {
		return result, eris.Wrap(err, "pipeline: route")
	}

	log.Info("pipeline run complete", zap.Int("stages", len(result.Stages)))
	return result, nil
}
