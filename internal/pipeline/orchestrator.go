// Package pipeline runs search, enrichment, persistence and campaign
// creation for one business.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadflow/internal/agentcache"
	"github.com/sells-group/leadflow/internal/metrics"
	"github.com/sells-group/leadflow/internal/model"
)

// CampaignGenerator builds campaigns. Implementations never fail; degraded
// output is flagged on the campaign.
type CampaignGenerator interface {
	GenerateEmailCampaign(ctx context.Context, businessID string, leads []model.EnrichedLead) model.EmailCampaign
	GenerateVoiceCampaign(ctx context.Context, businessID string, leads []model.EnrichedLead) model.VoiceCampaign
}

// CampaignStore persists campaigns.
type CampaignStore interface {
	InsertEmailCampaign(ctx context.Context, c model.EmailCampaign) (string, error)
	InsertVoiceCampaign(ctx context.Context, c model.VoiceCampaign) (string, error)
}

// Result holds the campaigns created for one business. A nil field means the
// partition was empty or its campaign could not be persisted.
type Result struct {
	Email *model.EmailCampaign `json:"email,omitempty"`
	Voice *model.VoiceCampaign `json:"voice,omitempty"`
}

// Orchestrator partitions leads by segment and creates one campaign per
// non-empty partition.
type Orchestrator struct {
	generator    CampaignGenerator
	store        CampaignStore
	agents       agentcache.Cache
	writeTimeout time.Duration
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithAgentCache links voice campaigns to the provisioned outreach agent.
func WithAgentCache(c agentcache.Cache) OrchestratorOption {
	return func(o *Orchestrator) { o.agents = c }
}

// WithWriteTimeout bounds each campaign insert.
func WithWriteTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.writeTimeout = d }
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(gen CampaignGenerator, st CampaignStore, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{generator: gen, store: st}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Partition splits leads into cold and warm-or-hot, preserving order.
func Partition(leads []model.EnrichedLead) (cold, warmHot []model.EnrichedLead) {
	for _, l := range leads {
		if l.Segment == model.SegmentCold {
			cold = append(cold, l)
		} else {
			warmHot = append(warmHot, l)
		}
	}
	return cold, warmHot
}

// AutoCreateCampaigns generates and persists an email campaign for cold leads
// and a voice campaign for warm and hot leads, concurrently. A persistence
// failure is logged and leaves that field nil without affecting the other.
func (o *Orchestrator) AutoCreateCampaigns(ctx context.Context, businessID string, leads []model.EnrichedLead) Result {
	cold, warmHot := Partition(leads)
	log := zap.L().With(zap.String("business_id", businessID))

	var res Result
	var g errgroup.Group

	if len(cold) > 0 {
		g.Go(func() error {
			c := o.generator.GenerateEmailCampaign(ctx, businessID, cold)
			c.TargetSegment = model.SegmentCold
			c.Status = model.CampaignStatusDraft

			wctx, cancel := o.writeContext(ctx)
			defer cancel()
			id, err := o.store.InsertEmailCampaign(wctx, c)
			if err != nil {
				log.Error("pipeline: persist email campaign", zap.Int("leads", len(cold)), zap.Error(err))
				return nil
			}
			c.ID = id
			metrics.CampaignsCreated.WithLabelValues("email").Inc()
			res.Email = &c
			return nil
		})
	}

	if len(warmHot) > 0 {
		g.Go(func() error {
			c := o.generator.GenerateVoiceCampaign(ctx, businessID, warmHot)
			if c.TargetSegment != model.SegmentHot {
				c.TargetSegment = model.SegmentWarm
			}
			c.Status = model.CampaignStatusDraft
			c.AgentID = o.agentID(ctx)

			wctx, cancel := o.writeContext(ctx)
			defer cancel()
			id, err := o.store.InsertVoiceCampaign(wctx, c)
			if err != nil {
				log.Error("pipeline: persist voice campaign", zap.Int("leads", len(warmHot)), zap.Error(err))
				return nil
			}
			c.ID = id
			metrics.CampaignsCreated.WithLabelValues("voice").Inc()
			res.Voice = &c
			return nil
		})
	}

	_ = g.Wait()

	log.Info("pipeline: campaigns created",
		zap.Int("cold", len(cold)),
		zap.Int("warm_hot", len(warmHot)),
		zap.Bool("email", res.Email != nil),
		zap.Bool("voice", res.Voice != nil),
	)
	return res
}

func (o *Orchestrator) agentID(ctx context.Context) string {
	if o.agents == nil {
		return ""
	}
	id, _ := o.agents.Get(ctx, agentcache.TemplateVoiceOutreach)
	return id
}

func (o *Orchestrator) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, o.writeTimeout)
}
