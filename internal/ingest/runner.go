package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/linkpipe/internal/model"
	"github.com/sells-group/linkpipe/internal/resilience"
	"github.com/sells-group/linkpipe/pkg/notion"
	"github.com/sells-group/linkpipe/pkg/sheets"
)

// harvestConcurrency bounds parallel source fetches; the per-client rate
// limiters do the real throttling.
const harvestConcurrency = 4

// Runner harvests links from all configured sources and writes the
// deduplicated ingestion CSV.
type Runner struct {
	Sheets      sheets.Client
	Notion      notion.Client
	Sources     []Source
	MonthFilter string
	OutputDir   string
	Retry       resilience.RetryConfig
}

// SourceResult records one source's harvest outcome. A failed source does
// not fail the run; its error is carried here.
type SourceResult struct {
	Source Source
	Rows   int
	Err    error
}

// Result is the outcome of an ingestion run.
type Result struct {
	CSVPath   string
	Rows      []model.SheetRow
	Harvested int
	Sources   []SourceResult
}

// Run harvests every source, deduplicates by normalized URL, and writes
// the CSV that feeds the bulk load. Sources fail independently; the run
// errors only when every source fails or the CSV cannot be written.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if len(r.Sources) == 0 {
		return nil, eris.New("ingest: no sources configured")
	}

	perSource := make([][]model.SheetRow, len(r.Sources))
	results := make([]SourceResult, len(r.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(harvestConcurrency)
	for i, src := range r.Sources {
		g.Go(func() error {
			rows, err := r.harvest(gctx, src)
			perSource[i] = rows
			results[i] = SourceResult{Source: src, Rows: len(rows), Err: err}
			if err != nil {
				zap.L().Warn("source harvest failed",
					zap.String("source", src.Name),
					zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.SheetRow
	failed := 0
	for i := range results {
		if results[i].Err != nil {
			failed++
			continue
		}
		all = append(all, perSource[i]...)
	}
	if failed == len(r.Sources) {
		return nil, eris.Errorf("ingest: all %d sources failed", failed)
	}

	harvested := len(all)
	rows := DedupeRows(all)

	csvPath := filepath.Join(r.OutputDir, fmt.Sprintf("links_%s.csv", time.Now().UTC().Format("20060102T150405Z")))
	if err := WriteCSV(csvPath, rows); err != nil {
		return nil, err
	}

	zap.L().Info("ingestion complete",
		zap.Int("sources", len(r.Sources)),
		zap.Int("failed_sources", failed),
		zap.Int("harvested", harvested),
		zap.Int("deduplicated", len(rows)),
		zap.String("csv", csvPath))

	return &Result{CSVPath: csvPath, Rows: rows, Harvested: harvested, Sources: results}, nil
}

func (r *Runner) harvest(ctx context.Context, src Source) ([]model.SheetRow, error) {
	switch src.Kind {
	case SourceSheet:
		return r.harvestSheet(ctx, src)
	case SourceNotion:
		return r.harvestNotion(ctx, src)
	case SourceXLSX:
		return r.harvestXLSX(src)
	default:
		return nil, eris.Errorf("ingest: unknown source kind %q", src.Kind)
	}
}

// retryFor attaches a logging hook for the named call unless the caller
// installed its own.
func (r *Runner) retryFor(service, operation string) resilience.RetryConfig {
	cfg := r.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(service, operation)
	}
	return cfg
}

func (r *Runner) harvestSheet(ctx context.Context, src Source) ([]model.SheetRow, error) {
	if r.Sheets == nil {
		return nil, eris.New("ingest: no sheets client configured")
	}

	id, gid, err := sheets.ParseSheetURL(src.Ref)
	if err != nil {
		return nil, err
	}

	meta, err := resilience.DoVal(ctx, r.retryFor("sheets", "get_spreadsheet"), func(ctx context.Context) (*sheets.Spreadsheet, error) {
		return r.Sheets.GetSpreadsheet(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	tab := sheets.SelectTabByMonth(meta.Sheets, r.MonthFilter)
	if tab == nil {
		tab = sheets.FindTabByGID(meta.Sheets, gid)
	}
	if tab == nil {
		return nil, eris.Errorf("ingest: no tab matching %q in %s", r.MonthFilter, src.Name)
	}

	grid, err := resilience.DoVal(ctx, r.retryFor("sheets", "get_values"), func(ctx context.Context) ([][]string, error) {
		return r.Sheets.GetValues(ctx, id, tab.Properties.Title)
	})
	if err != nil {
		return nil, err
	}

	sheetName := meta.Properties.Title
	if sheetName == "" {
		sheetName = src.Name
	}
	return ParseGrid(grid, sheetName, tab.Properties.Title), nil
}

func (r *Runner) harvestNotion(ctx context.Context, src Source) ([]model.SheetRow, error) {
	if r.Notion == nil {
		return nil, eris.New("ingest: no notion client configured")
	}

	links, err := resilience.DoVal(ctx, r.retryFor("notion", "extract_links"), func(ctx context.Context) ([]notion.Link, error) {
		return notion.ExtractLinks(ctx, r.Notion, src.Ref)
	})
	if err != nil {
		return nil, err
	}

	var rows []model.SheetRow
	for i, l := range links {
		if !IsLinkedInURL(l.URL) {
			continue
		}
		rows = append(rows, model.SheetRow{
			Role:      l.AnchorText,
			URL:       NormalizeURL(l.URL),
			SheetName: src.Name,
			RowNumber: i + 1,
		})
	}
	return rows, nil
}

func (r *Runner) harvestXLSX(src Source) ([]model.SheetRow, error) {
	grid, tabTitle, err := ReadXLSXGrid(src.Ref, r.MonthFilter)
	if err != nil {
		return nil, err
	}
	name := src.Name
	if name == "" {
		name = filepath.Base(src.Ref)
	}
	return ParseGrid(grid, name, tabTitle), nil
}
