// Package enrich turns raw leads into researched, scored and segmented
// leads using an AI completion.
package enrich

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadflow/internal/llm"
	"github.com/sells-group/leadflow/internal/metrics"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/segment"
)

const (
	// Stage labels enrichment fallbacks and logs.
	Stage = "enrich"

	// FallbackScore is the score given to a lead whose research failed.
	FallbackScore = 50

	defaultConcurrency = 5
	defaultTemperature = 0.4
	defaultMaxTokens   = 2000
)

// Enricher researches and scores leads with a bounded worker pool.
type Enricher struct {
	completer   llm.Completer
	concurrency int
	temperature float64
	maxTokens   int
	nowFunc     func() time.Time
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithConcurrency bounds the number of in-flight completions.
func WithConcurrency(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *Enricher) {
		if t > 0 {
			e.temperature = t
		}
	}
}

// WithClock overrides the clock used for close-date estimates.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		e.nowFunc = now
	}
}

// New creates an Enricher.
func New(completer llm.Completer, opts ...Option) *Enricher {
	e := &Enricher{
		completer:   completer,
		concurrency: defaultConcurrency,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		nowFunc:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// research is the JSON shape the model is asked to return.
type research struct {
	PainPoints         []string `json:"painPoints"`
	BuyingSignals      []string `json:"buyingSignals"`
	DecisionMakers     []string `json:"decisionMakers"`
	CompetitorInfo     string   `json:"competitorInfo"`
	RecentNews         []string `json:"recentNews"`
	OutreachStrategy   string   `json:"outreachStrategy"`
	EmailSubject       string   `json:"emailSubject"`
	VoicePitch         string   `json:"voicePitch"`
	QualificationScore *float64 `json:"qualificationScore"`
	Confidence         float64  `json:"confidence"`
}

// Validate rejects responses that carry no score.
func (r *research) Validate() error {
	if r.QualificationScore == nil {
		return eris.New("enrich: response has no qualificationScore")
	}
	return nil
}

// EnrichLead researches one lead. It never fails: on any completion or parse
// error it returns a degraded cold lead scored FallbackScore.
func (e *Enricher) EnrichLead(ctx context.Context, lead model.RawLead) model.EnrichedLead {
	start := time.Now()
	defer func() { metrics.EnrichDuration.Observe(time.Since(start).Seconds()) }()

	text, err := e.completer.Complete(ctx, buildPrompt(lead), llm.Options{
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		System:      systemPrompt,
		Stage:       Stage,
	})
	if err != nil {
		zap.L().Warn("enrich: completion failed",
			zap.String("company", lead.CompanyName),
			zap.Error(err),
		)
	}

	r, degraded := llm.ParseOrDefault(Stage, text, err, func() research { return research{} })
	var out model.EnrichedLead
	if degraded {
		out = e.Fallback(lead)
	} else {
		out = e.fromResearch(lead, r)
	}
	metrics.LeadsEnriched.WithLabelValues(string(out.Segment)).Inc()
	return out
}

func (e *Enricher) fromResearch(lead model.RawLead, r research) model.EnrichedLead {
	score := segment.ClampScore(*r.QualificationScore)
	seg := segment.ForScore(score)
	return model.EnrichedLead{
		RawLead: lead,
		Research: model.ResearchPayload{
			PainPoints:       nonNil(r.PainPoints),
			BuyingSignals:    nonNil(r.BuyingSignals),
			DecisionMakers:   nonNil(r.DecisionMakers),
			CompetitorInfo:   r.CompetitorInfo,
			RecentNews:       nonNil(r.RecentNews),
			OutreachStrategy: r.OutreachStrategy,
			EmailSubject:     r.EmailSubject,
			VoicePitch:       r.VoicePitch,
			Confidence:       segment.ClampScore(r.Confidence),
		},
		Segment:            seg,
		QualificationScore: score,
		RecommendedChannel: segment.Channel(seg, lead.HasDirectPhone()),
		EstimatedCloseDate: segment.CloseDate(e.nowFunc(), seg),
		EstimatedDealValue: segment.DealValue(lead.CompanyEmployees, seg),
	}
}

// Fallback is the degraded lead used when research is unavailable. It is
// always cold, scored FallbackScore, and routed to email.
func (e *Enricher) Fallback(lead model.RawLead) model.EnrichedLead {
	company := orDefault(lead.CompanyName, "your company")
	industry := orDefault(lead.CompanyIndustry, "local service")
	return model.EnrichedLead{
		RawLead: lead,
		Research: model.ResearchPayload{
			PainPoints:       []string{},
			BuyingSignals:    []string{},
			DecisionMakers:   []string{},
			RecentNews:       []string{},
			OutreachStrategy: fmt.Sprintf("Open with a short, value-first introduction to %s focused on common %s business challenges.", company, industry),
			EmailSubject:     fmt.Sprintf("Quick idea for %s", company),
			VoicePitch:       fmt.Sprintf("We help %s businesses like %s win more customers with less busywork.", industry, company),
		},
		Segment:            model.SegmentCold,
		QualificationScore: FallbackScore,
		RecommendedChannel: model.ChannelEmail,
		EstimatedCloseDate: segment.CloseDate(e.nowFunc(), model.SegmentCold),
		EstimatedDealValue: segment.DealValue(lead.CompanyEmployees, model.SegmentCold),
		Degraded:           true,
	}
}

// EnrichLeads enriches leads with at most the configured number of
// completions in flight. The result has one entry per input, in input order.
// Once ctx is done no new completion starts and every lead not yet started
// gets the degraded fallback.
func (e *Enricher) EnrichLeads(ctx context.Context, leads []model.RawLead) []model.EnrichedLead {
	out := make([]model.EnrichedLead, len(leads))
	var skipped atomic.Int64

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	next := 0
	for ; next < len(leads); next++ {
		if ctx.Err() != nil {
			break
		}
		i, lead := next, leads[next]
		g.Go(func() error {
			if ctx.Err() != nil {
				skipped.Add(1)
				out[i] = e.Fallback(lead)
				return nil
			}
			out[i] = e.EnrichLead(ctx, lead)
			return nil
		})
	}
	_ = g.Wait()

	for i := next; i < len(leads); i++ {
		out[i] = e.Fallback(leads[i])
	}
	skipped.Add(int64(len(leads) - next))

	var degraded int
	for _, l := range out {
		if l.Degraded {
			degraded++
		}
	}
	zap.L().Info("enrich: batch complete",
		zap.Int("leads", len(leads)),
		zap.Int("degraded", degraded),
		zap.Int64("skipped", skipped.Load()),
		zap.Int("concurrency", e.concurrency),
	)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
