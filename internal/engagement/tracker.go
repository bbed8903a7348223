// Package engagement applies email engagement events to persisted leads.
package engagement

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/metrics"
	"github.com/sells-group/leadflow/internal/model"
)

// Event is an email engagement event.
type Event string

const (
	EventOpened  Event = "opened"
	EventClicked Event = "clicked"
	EventReplied Event = "replied"
)

// QualifyThreshold is the score at which a new lead becomes qualified.
const QualifyThreshold = 50

var eventPoints = map[Event]int{
	EventOpened:  10,
	EventClicked: 25,
	EventReplied: 50,
}

// ErrUnknownEvent is returned for events other than opened, clicked and
// replied.
var ErrUnknownEvent = eris.New("engagement: unknown event")

// Points returns the score increment for ev.
func Points(ev Event) (int, error) {
	p, ok := eventPoints[ev]
	if !ok {
		return 0, eris.Wrapf(ErrUnknownEvent, "%q", string(ev))
	}
	return p, nil
}

// LeadStore applies score increments to persisted leads. AddEngagementScore
// must be atomic per lead: concurrent calls for one lead, from any process,
// each see the previous increment. A new lead whose score reaches qualifyAt
// becomes qualified in the same write.
type LeadStore interface {
	AddEngagementScore(ctx context.Context, id string, points, qualifyAt int) (before, after model.LeadState, err error)
}

// PromotionHook runs after a lead moves from new to qualified.
type PromotionHook func(ctx context.Context, leadID string, state model.LeadState)

// Tracker applies engagement events.
type Tracker struct {
	store LeadStore
	hook  PromotionHook
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPromotionHook sets the hook run on new to qualified transitions.
func WithPromotionHook(h PromotionHook) Option {
	return func(t *Tracker) { t.hook = h }
}

// NewTracker creates a Tracker.
func NewTracker(st LeadStore, opts ...Option) *Tracker {
	t := &Tracker{store: st}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Apply returns the state after ev. Scores are not capped. Only a new lead
// reaching QualifyThreshold changes status.
func Apply(state model.LeadState, ev Event) (model.LeadState, error) {
	p, err := Points(ev)
	if err != nil {
		return state, err
	}
	return state.AddScore(p, QualifyThreshold), nil
}

// TrackEmailEngagement adds the event's points to the lead's score and
// promotes it to qualified when it crosses QualifyThreshold.
func (t *Tracker) TrackEmailEngagement(ctx context.Context, leadID string, ev Event) error {
	p, err := Points(ev)
	if err != nil {
		return err
	}

	before, after, err := t.store.AddEngagementScore(ctx, leadID, p, QualifyThreshold)
	if err != nil {
		return eris.Wrapf(err, "engagement: update lead %s", leadID)
	}

	metrics.EngagementEvents.WithLabelValues(string(ev)).Inc()
	zap.L().Info("engagement: event applied",
		zap.String("lead_id", leadID),
		zap.String("event", string(ev)),
		zap.Int("score", after.QualificationScore),
		zap.String("status", string(after.Status)),
	)

	if before.Status == model.LeadStatusNew && after.Status == model.LeadStatusQualified && t.hook != nil {
		t.hook(ctx, leadID, after)
	}
	return nil
}
