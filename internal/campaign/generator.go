// Package campaign generates email nurture sequences for cold leads and call
// scripts for warm and hot leads.
package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/llm"
	"github.com/sells-group/leadflow/internal/model"
)

const (
	// StageEmail labels email generation fallbacks.
	StageEmail = "campaign_email"
	// StageVoice labels voice script fallbacks.
	StageVoice = "campaign_voice"

	defaultTemperature = 0.7
	emailMaxTokens     = 4000
	voiceMaxTokens     = 2000
	topPainPoints      = 3
)

// Generator builds campaigns from enriched leads.
type Generator struct {
	completer        llm.Completer
	emailTemperature float64
	voiceTemperature float64
	nowFunc          func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithEmailTemperature overrides the email sampling temperature.
func WithEmailTemperature(t float64) Option {
	return func(g *Generator) {
		if t > 0 {
			g.emailTemperature = t
		}
	}
}

// WithVoiceTemperature overrides the voice sampling temperature.
func WithVoiceTemperature(t float64) Option {
	return func(g *Generator) {
		if t > 0 {
			g.voiceTemperature = t
		}
	}
}

// WithClock overrides the clock used for campaign names and timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.nowFunc = now
	}
}

// New creates a Generator.
func New(completer llm.Completer, opts ...Option) *Generator {
	g := &Generator{
		completer:        completer,
		emailTemperature: defaultTemperature,
		voiceTemperature: defaultTemperature,
		nowFunc:          time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

type emailSequence struct {
	Emails []emailTouch `json:"emails"`
}

type emailTouch struct {
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	DelayDays    int    `json:"delayDays"`
	CallToAction string `json:"callToAction"`
}

// Validate rejects sequences with no usable touch.
func (s *emailSequence) Validate() error {
	if len(s.Emails) == 0 {
		return eris.New("campaign: response has no emails")
	}
	for i, e := range s.Emails {
		if e.Subject == "" || e.Body == "" {
			return eris.Errorf("campaign: email %d is missing subject or body", i)
		}
		if e.DelayDays < 0 {
			return eris.Errorf("campaign: email %d has negative delay", i)
		}
	}
	return nil
}

type voiceScript struct {
	Greeting          string            `json:"greeting"`
	Pitch             string            `json:"pitch"`
	ObjectionHandling map[string]string `json:"objectionHandling"`
	Closing           string            `json:"closing"`
}

// Validate rejects scripts missing a required section.
func (s *voiceScript) Validate() error {
	if s.Greeting == "" || s.Pitch == "" || s.Closing == "" {
		return eris.New("campaign: script is missing greeting, pitch or closing")
	}
	return nil
}

// GenerateEmailCampaign builds a draft nurture sequence targeting the given
// cold leads. It never fails: if generation is unavailable the campaign
// carries the standard three-touch sequence and is marked degraded.
func (g *Generator) GenerateEmailCampaign(ctx context.Context, businessID string, leads []model.EnrichedLead) model.EmailCampaign {
	var sample model.EnrichedLead
	if len(leads) > 0 {
		sample = leads[0]
	}
	pains := TopPainPoints(leads, topPainPoints)

	text, err := g.completer.Complete(ctx, emailPrompt(sample, len(leads), pains), llm.Options{
		Temperature: g.emailTemperature,
		MaxTokens:   emailMaxTokens,
		System:      systemPrompt,
		Stage:       StageEmail,
	})
	if err != nil {
		zap.L().Warn("campaign: email generation failed",
			zap.String("business_id", businessID),
			zap.Error(err),
		)
	}

	seq, degraded := llm.ParseOrDefault(StageEmail, text, err, func() emailSequence {
		return emailSequence{Emails: fallbackEmails(sample)}
	})

	touches := make([]model.EmailTouch, len(seq.Emails))
	for i, e := range seq.Emails {
		touches[i] = model.EmailTouch{
			Subject:      e.Subject,
			Body:         e.Body,
			DelayDays:    e.DelayDays,
			CallToAction: e.CallToAction,
		}
	}

	now := g.nowFunc().UTC()
	return model.EmailCampaign{
		BusinessID:    businessID,
		Name:          fmt.Sprintf("Cold nurture %s", now.Format("2006-01-02")),
		Status:        model.CampaignStatusDraft,
		Touches:       touches,
		TargetLeadIDs: targetIDs(leads),
		TargetSegment: model.SegmentCold,
		Degraded:      degraded,
		CreatedAt:     now,
	}
}

// GenerateVoiceCampaign builds a draft call script for warm and hot leads,
// using the first lead as the representative. The target segment is hot when
// the representative is hot and warm otherwise. Every objection key is
// always present.
func (g *Generator) GenerateVoiceCampaign(ctx context.Context, businessID string, leads []model.EnrichedLead) model.VoiceCampaign {
	var rep model.EnrichedLead
	if len(leads) > 0 {
		rep = leads[0]
	}

	text, err := g.completer.Complete(ctx, voicePrompt(rep), llm.Options{
		Temperature: g.voiceTemperature,
		MaxTokens:   voiceMaxTokens,
		System:      systemPrompt,
		Stage:       StageVoice,
	})
	if err != nil {
		zap.L().Warn("campaign: voice generation failed",
			zap.String("business_id", businessID),
			zap.Error(err),
		)
	}

	script, degraded := llm.ParseOrDefault(StageVoice, text, err, func() voiceScript {
		return fallbackScript(rep)
	})

	target := model.SegmentWarm
	if rep.Segment == model.SegmentHot {
		target = model.SegmentHot
	}

	now := g.nowFunc().UTC()
	return model.VoiceCampaign{
		BusinessID:        businessID,
		Name:              fmt.Sprintf("%s outreach %s", titleSegment(target), now.Format("2006-01-02")),
		Status:            model.CampaignStatusDraft,
		GreetingScript:    script.Greeting,
		PitchScript:       script.Pitch,
		ObjectionHandling: completeObjections(script.ObjectionHandling),
		ClosingScript:     script.Closing,
		TargetLeadIDs:     targetIDs(leads),
		TargetSegment:     target,
		Degraded:          degraded,
		CreatedAt:         now,
	}
}

// completeObjections keeps exactly the standard objection keys, filling any
// the model left out or blank.
func completeObjections(in map[string]string) map[string]string {
	out := make(map[string]string, len(model.ObjectionKeys))
	for _, k := range model.ObjectionKeys {
		if v := in[k]; v != "" {
			out[k] = v
			continue
		}
		out[k] = standardObjections[k]
	}
	return out
}

func targetIDs(leads []model.EnrichedLead) []string {
	ids := make([]string, 0, len(leads))
	for _, l := range leads {
		if id := l.TargetID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func titleSegment(s model.Segment) string {
	if s == model.SegmentHot {
		return "Hot"
	}
	return "Warm"
}
