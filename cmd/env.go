package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/linkpipe/internal/ingest"
	"github.com/sells-group/linkpipe/internal/pipeline"
	"github.com/sells-group/linkpipe/internal/queue"
	"github.com/sells-group/linkpipe/internal/resilience"
	"github.com/sells-group/linkpipe/internal/store"
	"github.com/sells-group/linkpipe/pkg/notion"
	"github.com/sells-group/linkpipe/pkg/sheets"
)

// env holds initialized dependencies. Fields are populated on demand; a
// command that never touches Redis never opens a Redis connection.
type env struct {
	Store  store.Store
	Broker queue.Broker
}

// Close releases whatever the command actually opened.
func (e *env) Close() {
	if e.Broker != nil {
		_ = e.Broker.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the Postgres store and applies the schema.
func (e *env) initStore(ctx context.Context) error {
	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return eris.Wrap(err, "migrate store")
	}
	e.Store = st
	return nil
}

// initBroker connects to Redis.
func (e *env) initBroker(ctx context.Context) error {
	broker, err := queue.NewRedisBroker(ctx, cfg.Broker.URL)
	if err != nil {
		return eris.Wrap(err, "open broker")
	}
	e.Broker = broker
	return nil
}

// newRunner builds the ingestion runner from configured sources.
func newRunner() (*ingest.Runner, error) {
	sources, err := ingest.LoadSources(cfg.Sources)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, eris.New("no ingestion sources configured")
	}

	var sheetsClient sheets.Client
	if cfg.Sources.SheetsAPIKey != "" {
		sheetsClient = sheets.NewClient(cfg.Sources.SheetsAPIKey)
	} else {
		zap.L().Warn("LINKPIPE_SOURCES_SHEETS_API_KEY not set, sheet sources will fail")
	}

	var notionClient notion.Client
	if cfg.Sources.NotionToken != "" {
		notionClient = notion.NewClient(cfg.Sources.NotionToken)
	}

	return &ingest.Runner{
		Sheets:      sheetsClient,
		Notion:      notionClient,
		Sources:     sources,
		MonthFilter: cfg.Ingest.MonthFilter,
		OutputDir:   cfg.Ingest.OutputDir,
		Retry:       resilience.DefaultRetryConfig(),
	}, nil
}

// newRouterFromConfig builds a router with the configured batch size.
func newRouterFromConfig(e *env) *pipeline.Router {
	return pipeline.NewRouter(e.Store, e.Broker, cfg.Router.BatchSize)
}

// newPipeline wires the full run: store, broker, runner, router.
func newPipeline(e *env) (*pipeline.Pipeline, error) {
	runner, err := newRunner()
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, e.Store, runner, newRouterFromConfig(e)), nil
}
