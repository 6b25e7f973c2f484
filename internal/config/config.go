// Package config loads linkpipe configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Broker     BrokerConfig     `yaml:"broker" mapstructure:"broker"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Router     RouterConfig     `yaml:"router" mapstructure:"router"`
	Worker     WorkerConfig     `yaml:"worker" mapstructure:"worker"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" mapstructure:"scheduler"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the link store database.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// BrokerConfig configures the Redis task broker.
type BrokerConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// SourcesConfig lists the ingestion sources.
type SourcesConfig struct {
	// File points at an optional sources.yaml with additional entries.
	File string `yaml:"file" mapstructure:"file"`
	// SheetURLs are Google Sheets URLs (docs.google.com/spreadsheets/d/...).
	SheetURLs []string `yaml:"sheet_urls" mapstructure:"sheet_urls"`
	// NotionPages are Notion page IDs to walk for links.
	NotionPages []string `yaml:"notion_pages" mapstructure:"notion_pages"`
	// XLSXPaths are local spreadsheet exports parsed with the same grid scan.
	XLSXPaths []string `yaml:"xlsx_paths" mapstructure:"xlsx_paths"`
	// SheetsAPIKey authenticates Google Sheets API reads.
	SheetsAPIKey string `yaml:"sheets_api_key" mapstructure:"sheets_api_key"`
	// NotionToken authenticates the Notion integration.
	NotionToken string `yaml:"notion_token" mapstructure:"notion_token"`
}

// IngestConfig configures the ingestion stage.
type IngestConfig struct {
	// MonthFilter selects which dated worksheet tab to read, by substring.
	MonthFilter string `yaml:"month_filter" mapstructure:"month_filter"`
	// OutputDir is the root for timestamped ingestion CSVs.
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	// BackupDir is where post-upsert backup CSVs are written.
	BackupDir string `yaml:"backup_dir" mapstructure:"backup_dir"`
	// WindowMinutes bounds which rows the backup export includes.
	WindowMinutes int `yaml:"window_minutes" mapstructure:"window_minutes"`
}

// RouterConfig configures the routing stage.
type RouterConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// WorkerConfig configures the scrape worker.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	// Backoff is the flat delay before a failed link becomes eligible again.
	Backoff time.Duration `yaml:"backoff" mapstructure:"backoff"`
	// MaxAttempts moves a link to dead after this many failures. 0 retries forever.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// ClaimTTL bounds how long a scraping claim may be held before the
	// watchdog requeues the link.
	ClaimTTL time.Duration `yaml:"claim_ttl" mapstructure:"claim_ttl"`
	// ArtifactDir is the root for HTML snapshots and screenshots.
	ArtifactDir string `yaml:"artifact_dir" mapstructure:"artifact_dir"`
}

// ScrapeConfig configures the browser-automation collaborator.
type ScrapeConfig struct {
	Headless    bool          `yaml:"headless" mapstructure:"headless"`
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`
	NavTimeout  time.Duration `yaml:"nav_timeout" mapstructure:"nav_timeout"`
	SettleDelay time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
}

// SchedulerConfig configures the cron beat.
type SchedulerConfig struct {
	// PipelineCron is a 5-field crontab expression for full pipeline runs.
	PipelineCron string `yaml:"pipeline_cron" mapstructure:"pipeline_cron"`
	// RouterCron sweeps the queue for routable links.
	RouterCron string `yaml:"router_cron" mapstructure:"router_cron"`
	// ReclaimCron runs the stale-claim watchdog.
	ReclaimCron string `yaml:"reclaim_cron" mapstructure:"reclaim_cron"`
	// JobTimeout bounds each scheduled job run. 0 disables the bound.
	JobTimeout time.Duration `yaml:"job_timeout" mapstructure:"job_timeout"`
}

// ServerConfig configures the status HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures background health checks.
type MonitoringConfig struct {
	// CheckIntervalSecs is how often the checker snapshots metrics.
	CheckIntervalSecs int `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	// DeadThreshold alerts when this many links have gone dead.
	DeadThreshold int64 `yaml:"dead_threshold" mapstructure:"dead_threshold"`
	// QueueDepthThreshold alerts when a scrape queue backs up past this.
	QueueDepthThreshold int64 `yaml:"queue_depth_threshold" mapstructure:"queue_depth_threshold"`
	// WebhookURL receives alert POSTs. Empty disables delivery; alerts
	// still log.
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LINKPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("broker.url", "redis://localhost:6379/0")
	v.SetDefault("ingest.month_filter", "aug")
	v.SetDefault("ingest.output_dir", "./storage/ingest/google_sheets")
	v.SetDefault("ingest.backup_dir", "./storage/backups")
	v.SetDefault("ingest.window_minutes", 10)
	v.SetDefault("router.batch_size", 100)
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.backoff", 30*time.Minute)
	v.SetDefault("worker.max_attempts", 10)
	v.SetDefault("worker.claim_ttl", 30*time.Minute)
	v.SetDefault("worker.artifact_dir", "./storage/scrape")
	v.SetDefault("scrape.headless", true)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119 Safari/537.36")
	v.SetDefault("scrape.nav_timeout", 45*time.Second)
	v.SetDefault("scrape.settle_delay", 2*time.Second)
	v.SetDefault("scheduler.pipeline_cron", "0 */2 * * *")
	v.SetDefault("scheduler.router_cron", "* * * * *")
	v.SetDefault("scheduler.reclaim_cron", "*/15 * * * *")
	v.SetDefault("scheduler.job_timeout", time.Hour)
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.dead_threshold", 25)
	v.SetDefault("monitoring.queue_depth_threshold", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
