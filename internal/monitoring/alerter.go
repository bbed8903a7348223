// Package monitoring turns run summaries into webhook alerts.
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

	"github.com/sells-group/leadflow/internal/config"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/pipeline"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDegradedRate       AlertType = "degraded_enrichment_rate"
	AlertPhaseFailed        AlertType = "phase_failed"
	AlertCampaignNotCreated AlertType = "campaign_not_created"
)

// minEnrichedForRate is the smallest run whose degraded rate is meaningful.
const minEnrichedForRate = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type       AlertType      `json:"type"`
	Severity   string         `json:"severity"`
	BusinessID string         `json:"business_id"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Alerter evaluates a run summary against configured thresholds and sends
// alerts via webhook.
type Alerter struct {
	cfg     config.MonitoringConfig
	client  *http.Client
	nowFunc func() time.Time
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		nowFunc: time.Now,
	}
}

// Evaluate checks one run and returns any alerts.
func (a *Alerter) Evaluate(s *pipeline.RunSummary) []Alert {
	if s == nil {
		return nil
	}
	var alerts []Alert
	now := a.nowFunc().UTC()
	add := func(t AlertType, severity, msg string, details map[string]any) {
		alerts = append(alerts, Alert{
			Type:       t,
			Severity:   severity,
			BusinessID: s.BusinessID,
			Message:    msg,
			Details:    details,
			Timestamp:  now,
		})
	}

	if s.Enriched >= minEnrichedForRate && a.cfg.DegradedRateThreshold > 0 {
		rate := float64(s.Degraded) / float64(s.Enriched)
		if rate > a.cfg.DegradedRateThreshold {
			add(AlertDegradedRate, "high", fmt.Sprintf(
				"Degraded enrichment rate %.1f%% exceeds threshold %.1f%% (%d of %d leads)",
				rate*100, a.cfg.DegradedRateThreshold*100, s.Degraded, s.Enriched,
			), map[string]any{
				"degraded_rate": rate,
				"threshold":     a.cfg.DegradedRateThreshold,
				"degraded":      s.Degraded,
				"enriched":      s.Enriched,
			})
		}
	}

	for _, p := range s.Phases {
		if p.Status != pipeline.PhaseFailed {
			continue
		}
		add(AlertPhaseFailed, "medium", fmt.Sprintf("Phase %s failed: %s", p.Name, p.Error),
			map[string]any{"phase": p.Name, "error": p.Error})
	}

	cold := s.BySegment[model.SegmentCold]
	warmHot := s.BySegment[model.SegmentWarm] + s.BySegment[model.SegmentHot]
	if cold > 0 && s.EmailCampaignID == "" {
		add(AlertCampaignNotCreated, "high",
			fmt.Sprintf("Email campaign for %d cold leads was not persisted", cold),
			map[string]any{"campaign_type": "email", "leads": cold})
	}
	if warmHot > 0 && s.VoiceCampaignID == "" {
		add(AlertCampaignNotCreated, "high",
			fmt.Sprintf("Voice campaign for %d warm/hot leads was not persisted", warmHot),
			map[string]any{"campaign_type": "voice", "leads": warmHot})
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
			zap.String("business_id", alert.BusinessID),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

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

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
