// Package metrics exposes the Prometheus collectors for leadflow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every leadflow collector plus Go runtime and process metrics.
var Registry = prometheus.NewRegistry()

var (
	// AIFallbacks counts completions that were replaced by a default value.
	AIFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leadflow",
		Name:      "ai_fallbacks_total",
		Help:      "AI completions replaced by a fallback value, by stage.",
	}, []string{"stage"})

	// LeadsEnriched counts enriched leads by resulting segment.
	LeadsEnriched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leadflow",
		Name:      "leads_enriched_total",
		Help:      "Leads enriched, by segment.",
	}, []string{"segment"})

	// CampaignsCreated counts persisted campaigns by type.
	CampaignsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leadflow",
		Name:      "campaigns_created_total",
		Help:      "Campaigns persisted, by type.",
	}, []string{"type"})

	// EngagementEvents counts tracked engagement events by kind.
	EngagementEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leadflow",
		Name:      "engagement_events_total",
		Help:      "Engagement events applied to leads, by event.",
	}, []string{"event"})

	// EnrichDuration observes per-lead enrichment latency.
	EnrichDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leadflow",
		Name:      "enrich_duration_seconds",
		Help:      "Per-lead enrichment latency.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		AIFallbacks,
		LeadsEnriched,
		CampaignsCreated,
		EngagementEvents,
		EnrichDuration,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
