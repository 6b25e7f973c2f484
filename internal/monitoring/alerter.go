package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/linkpipe/internal/config"
	"github.com/sells-group/linkpipe/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDeadLinks  AlertType = "dead_links"
	AlertQueueDepth AlertType = "queue_depth"
)

// Alert is one threshold breach.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates snapshots against thresholds and delivers alerts to a
// webhook. Alerts always log regardless of delivery.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates an alerter.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.DeadThreshold > 0 {
		if dead := snap.StatusCounts[model.StatusDead]; dead >= a.cfg.DeadThreshold {
			alerts = append(alerts, Alert{
				Type:      AlertDeadLinks,
				Severity:  "high",
				Message:   "links exhausting their retry budget",
				Details:   map[string]any{"dead": dead, "threshold": a.cfg.DeadThreshold},
				Timestamp: now,
			})
		}
	}

	if a.cfg.QueueDepthThreshold > 0 {
		for queueName, depth := range map[string]int64{
			model.QueueScrapeJob:  snap.JobQueueDepth,
			model.QueueScrapePost: snap.PostQueueDepth,
		} {
			if depth >= a.cfg.QueueDepthThreshold {
				alerts = append(alerts, Alert{
					Type:      AlertQueueDepth,
					Severity:  "medium",
					Message:   "scrape queue backing up",
					Details:   map[string]any{"queue": queueName, "depth": depth, "threshold": a.cfg.QueueDepthThreshold},
					Timestamp: now,
				})
			}
		}
	}

	return alerts
}

// SendAlerts logs every alert and POSTs each to the webhook when one is
// configured. Returns the number delivered.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	sent := 0
	for _, alert := range alerts {
		zap.L().Warn("alert triggered",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
			zap.String("message", alert.Message),
			zap.Any("details", alert.Details))

		if a.cfg.WebhookURL == "" {
			continue
		}
		if err := a.post(ctx, alert); err != nil {
			zap.L().Error("alert delivery failed", zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
