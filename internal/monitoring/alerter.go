package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/halcyonpay/amlscreen/internal/config"
	"github.com/halcyonpay/amlscreen/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFeedStale     AlertType = "feed_stale"
	AlertRowDrop       AlertType = "row_drop"
	AlertIndexNotBuilt AlertType = "index_not_built"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates snapshots against the configured thresholds and sends
// alerts via webhook when they are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates an Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate compares the current snapshot against thresholds and against
// the previous snapshot (for row-drop detection; prev may be nil on the
// first check) and returns any alerts.
func (a *Alerter) Evaluate(prev, curr *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if !curr.Built {
		alerts = append(alerts, Alert{
			Type:      AlertIndexNotBuilt,
			Severity:  "high",
			Message:   "sanctions index has never been built; screenings will trigger a blocking refresh",
			Timestamp: now,
		})
		return alerts
	}

	staleAfter := float64(a.cfg.StaleHours)
	for _, src := range curr.Sources {
		if src.NeverRefreshed {
			alerts = append(alerts, Alert{
				Type:     AlertFeedStale,
				Severity: "high",
				Message:  fmt.Sprintf("%s has never been downloaded; screenings are running on the bundled snapshot", src.Name),
				Details: map[string]any{
					"source": src.Name,
					"list":   src.ListName,
				},
				Timestamp: now,
			})
			continue
		}
		if staleAfter > 0 && src.AgeHours > staleAfter {
			alerts = append(alerts, Alert{
				Type:     AlertFeedStale,
				Severity: "medium",
				Message: fmt.Sprintf(
					"%s last downloaded %.0fh ago (threshold %.0fh)",
					src.Name, src.AgeHours, staleAfter,
				),
				Details: map[string]any{
					"source":            src.Name,
					"list":              src.ListName,
					"age_hours":         src.AgeHours,
					"last_refreshed_at": src.LastRefreshedAt,
				},
				Timestamp: now,
			})
		}
	}

	if prev != nil && prev.Built && a.cfg.RowDropThreshold > 0 {
		prevCounts := make(map[string]int, len(prev.Sources))
		for _, src := range prev.Sources {
			prevCounts[src.ListName] = src.Entities
		}
		for _, src := range curr.Sources {
			before := prevCounts[src.ListName]
			if before == 0 {
				continue
			}
			drop := 1 - float64(src.Entities)/float64(before)
			if drop >= a.cfg.RowDropThreshold {
				alerts = append(alerts, Alert{
					Type:     AlertRowDrop,
					Severity: "high",
					Message: fmt.Sprintf(
						"%s shrank from %d to %d entities (%.0f%% drop); the authority may have published a truncated feed",
						src.ListName, before, src.Entities, drop*100,
					),
					Details: map[string]any{
						"list":     src.ListName,
						"previous": before,
						"current":  src.Entities,
						"drop_pct": drop,
					},
					Timestamp: now,
				})
			}
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL, retrying transient
// delivery failures.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	return resilience.Do(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
		if err != nil {
			return eris.Wrap(err, "monitoring: create webhook request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return eris.Wrap(err, "monitoring: webhook request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(
				eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode), resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}
