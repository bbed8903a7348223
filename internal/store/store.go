// Package store persists leads and campaigns in Postgres or SQLite.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/model"
)

// ErrNotFound is returned when a lead or campaign does not exist.
var ErrNotFound = eris.New("store: not found")

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	BusinessID string           `json:"business_id,omitempty"`
	Segment    model.Segment    `json:"segment,omitempty"`
	Status     model.LeadStatus `json:"status,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Offset     int              `json:"offset,omitempty"`
}

const defaultListLimit = 100

// Store defines the persistence interface for leads and campaigns.
type Store interface {
	// Leads
	SaveLeads(ctx context.Context, businessID string, leads []model.EnrichedLead) ([]string, error)
	GetLead(ctx context.Context, id string) (*model.LeadRecord, error)
	UpdateLead(ctx context.Context, id string, state model.LeadState) error
	AddEngagementScore(ctx context.Context, id string, points, qualifyAt int) (before, after model.LeadState, err error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error)

	// Campaigns
	InsertEmailCampaign(ctx context.Context, c model.EmailCampaign) (string, error)
	InsertVoiceCampaign(ctx context.Context, c model.VoiceCampaign) (string, error)
	GetEmailCampaign(ctx context.Context, id string) (*model.EmailCampaign, error)
	GetVoiceCampaign(ctx context.Context, id string) (*model.VoiceCampaign, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Campaign types recorded alongside campaign targets.
const (
	campaignTypeEmail = "email"
	campaignTypeVoice = "voice"
)

// sourceKey is the natural key of a lead within a business. Leads without a
// provider id get a unique key so they are never merged.
func sourceKey(l model.EnrichedLead, fallback string) string {
	if l.SourceID != "" {
		return l.SourceID
	}
	return "generated:" + fallback
}
