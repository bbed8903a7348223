package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Objection keys every voice campaign carries a response for.
const (
	ObjectionTooBusy             = "too_busy"
	ObjectionNoBudget            = "no_budget"
	ObjectionNotDecisionMaker    = "not_decision_maker"
	ObjectionAlreadyHaveSolution = "already_have_solution"
	ObjectionNeedMoreInfo        = "need_more_info"
)

// ObjectionKeys lists the fixed objection keys in presentation order.
var ObjectionKeys = []string{
	ObjectionTooBusy,
	ObjectionNoBudget,
	ObjectionNotDecisionMaker,
	ObjectionAlreadyHaveSolution,
	ObjectionNeedMoreInfo,
}

// ErrCounterRegression is returned when a performance counter update would
// decrease a counter or break counter ordering.
var ErrCounterRegression = eris.New("model: counter regression")

// EmailTouch is one message in a nurture sequence.
type EmailTouch struct {
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	DelayDays    int    `json:"delay_days"`
	CallToAction string `json:"call_to_action"`
}

// EmailMetrics are monotonically non-decreasing email counters.
type EmailMetrics struct {
	Sent    int `json:"sent"`
	Opened  int `json:"opened"`
	Clicked int `json:"clicked"`
	Replied int `json:"replied"`
}

// Advance replaces m with next if no counter decreases.
func (m *EmailMetrics) Advance(next EmailMetrics) error {
	if next.Sent < m.Sent || next.Opened < m.Opened || next.Clicked < m.Clicked || next.Replied < m.Replied {
		return eris.Wrapf(ErrCounterRegression, "email metrics %+v -> %+v", *m, next)
	}
	*m = next
	return nil
}

// EmailCampaign is a multi-touch nurture sequence. It always targets the
// cold segment.
type EmailCampaign struct {
	ID            string         `json:"id"`
	BusinessID    string         `json:"business_id"`
	Name          string         `json:"name"`
	Status        CampaignStatus `json:"status"`
	Touches       []EmailTouch   `json:"touches"`
	TargetLeadIDs []string       `json:"target_lead_ids"`
	TargetSegment Segment        `json:"target_segment"`
	Metrics       EmailMetrics   `json:"metrics"`
	Degraded      bool           `json:"degraded"`
	CreatedAt     time.Time      `json:"created_at"`
}

// VoiceMetrics are monotonically non-decreasing call counters with
// booked <= connected <= made.
type VoiceMetrics struct {
	CallsMade          int `json:"calls_made"`
	CallsConnected     int `json:"calls_connected"`
	AppointmentsBooked int `json:"appointments_booked"`
}

// Advance replaces m with next if no counter decreases and ordering holds.
func (m *VoiceMetrics) Advance(next VoiceMetrics) error {
	if next.CallsMade < m.CallsMade || next.CallsConnected < m.CallsConnected || next.AppointmentsBooked < m.AppointmentsBooked {
		return eris.Wrapf(ErrCounterRegression, "voice metrics %+v -> %+v", *m, next)
	}
	if next.CallsConnected > next.CallsMade || next.AppointmentsBooked > next.CallsConnected {
		return eris.Wrapf(ErrCounterRegression, "voice metrics out of order: %+v", next)
	}
	*m = next
	return nil
}

// VoiceCampaign is a call script for warm and hot leads. TargetSegment is
// never cold.
type VoiceCampaign struct {
	ID                string            `json:"id"`
	BusinessID        string            `json:"business_id"`
	Name              string            `json:"name"`
	Status            CampaignStatus    `json:"status"`
	GreetingScript    string            `json:"greeting_script"`
	PitchScript       string            `json:"pitch_script"`
	ObjectionHandling map[string]string `json:"objection_handling"`
	ClosingScript     string            `json:"closing_script"`
	TargetLeadIDs     []string          `json:"target_lead_ids"`
	TargetSegment     Segment           `json:"target_segment"`
	Metrics           VoiceMetrics      `json:"metrics"`
	AgentID           string            `json:"agent_id,omitempty"`
	Degraded          bool              `json:"degraded"`
	CreatedAt         time.Time         `json:"created_at"`
}
