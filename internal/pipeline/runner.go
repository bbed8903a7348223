package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/leadsource"
	"github.com/sells-group/leadflow/internal/model"
)

// LeadEnricher researches raw leads. The result has one entry per input.
type LeadEnricher interface {
	EnrichLeads(ctx context.Context, leads []model.RawLead) []model.EnrichedLead
}

// LeadSaver persists enriched leads and returns their ids in input order.
type LeadSaver interface {
	SaveLeads(ctx context.Context, businessID string, leads []model.EnrichedLead) ([]string, error)
}

// HotLeadExporter pushes hot leads to the CRM and returns how many were
// accepted.
type HotLeadExporter interface {
	ExportHotLeads(ctx context.Context, leads []model.EnrichedLead) (int, error)
}

// Phase status values.
const (
	PhaseComplete = "complete"
	PhaseFailed   = "failed"
	PhaseSkipped  = "skipped"
)

// PhaseResult records the outcome of one run phase.
type PhaseResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RunSummary describes one pipeline run.
type RunSummary struct {
	BusinessID      string                `json:"business_id"`
	Searched        int                   `json:"searched"`
	Enriched        int                   `json:"enriched"`
	Degraded        int                   `json:"degraded"`
	Saved           int                   `json:"saved"`
	BySegment       map[model.Segment]int `json:"by_segment"`
	EmailCampaignID string                `json:"email_campaign_id,omitempty"`
	VoiceCampaignID string                `json:"voice_campaign_id,omitempty"`
	Exported        int                   `json:"exported"`
	Phases          []PhaseResult         `json:"phases"`
}

// Runner drives a full run for one business.
type Runner struct {
	searcher     leadsource.Searcher
	enricher     LeadEnricher
	leads        LeadSaver
	orchestrator *Orchestrator
	exporter     HotLeadExporter
	runTimeout   time.Duration
	writeTimeout time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithExporter enables CRM export of hot leads.
func WithExporter(e HotLeadExporter) RunnerOption {
	return func(r *Runner) { r.exporter = e }
}

// WithRunTimeout bounds the whole run.
func WithRunTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.runTimeout = d }
}

// WithLeadWriteTimeout bounds the lead save.
func WithLeadWriteTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.writeTimeout = d }
}

// NewRunner creates a Runner.
func NewRunner(s leadsource.Searcher, e LeadEnricher, l LeadSaver, o *Orchestrator, opts ...RunnerOption) *Runner {
	r := &Runner{searcher: s, enricher: e, leads: l, orchestrator: o}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run searches, enriches, saves and creates campaigns for businessID. Only
// search failures abort the run; later phases degrade and are recorded in
// the summary.
func (r *Runner) Run(ctx context.Context, businessID string, criteria model.SearchCriteria) (*RunSummary, error) {
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	log := zap.L().With(zap.String("business_id", businessID))
	log.Info("pipeline: starting run")

	summary := &RunSummary{BusinessID: businessID, BySegment: map[model.Segment]int{}}
	track := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		pr := PhaseResult{Name: name, Status: PhaseComplete, DurationMs: time.Since(start).Milliseconds()}
		if err != nil {
			pr.Status = PhaseFailed
			pr.Error = err.Error()
			log.Error("pipeline: phase failed", zap.String("phase", name), zap.Int64("duration_ms", pr.DurationMs), zap.Error(err))
		} else {
			log.Info("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", pr.DurationMs))
		}
		summary.Phases = append(summary.Phases, pr)
		return err
	}
	skip := func(name string) {
		summary.Phases = append(summary.Phases, PhaseResult{Name: name, Status: PhaseSkipped})
	}

	var raw []model.RawLead
	if err := track("search", func() error {
		var err error
		raw, err = r.searcher.SearchLeads(ctx, criteria)
		return err
	}); err != nil {
		return summary, eris.Wrap(err, "pipeline: search")
	}
	summary.Searched = len(raw)

	var enriched []model.EnrichedLead
	_ = track("enrich", func() error {
		enriched = r.enricher.EnrichLeads(ctx, raw)
		return nil
	})
	summary.Enriched = len(enriched)
	for _, l := range enriched {
		summary.BySegment[l.Segment]++
		if l.Degraded {
			summary.Degraded++
		}
	}

	_ = track("save_leads", func() error {
		wctx, cancel := withTimeout(ctx, r.writeTimeout)
		defer cancel()
		ids, err := r.leads.SaveLeads(wctx, businessID, enriched)
		if err != nil {
			return err
		}
		if len(ids) != len(enriched) {
			return eris.Errorf("pipeline: saved %d ids for %d leads", len(ids), len(enriched))
		}
		for i := range enriched {
			enriched[i].LeadID = ids[i]
		}
		summary.Saved = len(ids)
		return nil
	})

	_ = track("campaigns", func() error {
		res := r.orchestrator.AutoCreateCampaigns(ctx, businessID, enriched)
		if res.Email != nil {
			summary.EmailCampaignID = res.Email.ID
		}
		if res.Voice != nil {
			summary.VoiceCampaignID = res.Voice.ID
		}
		return nil
	})

	if r.exporter == nil {
		skip("crm_export")
	} else {
		_ = track("crm_export", func() error {
			n, err := r.exporter.ExportHotLeads(ctx, hotLeads(enriched))
			summary.Exported = n
			return err
		})
	}

	log.Info("pipeline: run complete",
		zap.Int("searched", summary.Searched),
		zap.Int("degraded", summary.Degraded),
		zap.String("email_campaign", summary.EmailCampaignID),
		zap.String("voice_campaign", summary.VoiceCampaignID),
	)
	return summary, nil
}

func hotLeads(leads []model.EnrichedLead) []model.EnrichedLead {
	var out []model.EnrichedLead
	for _, l := range leads {
		if l.Segment == model.SegmentHot {
			out = append(out, l)
		}
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
