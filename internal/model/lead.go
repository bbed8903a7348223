package model

import (
	"strings"
	"time"
)

// Segment classifies a lead's readiness to buy.
type Segment string

const (
	SegmentCold Segment = "cold"
	SegmentWarm Segment = "warm"
	SegmentHot  Segment = "hot"
)

// Rank orders segments cold < warm < hot. Unknown segments rank below cold.
func (s Segment) Rank() int {
	switch s {
	case SegmentCold:
		return 0
	case SegmentWarm:
		return 1
	case SegmentHot:
		return 2
	default:
		return -1
	}
}

// Channel is the recommended outreach channel for a lead.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelVoice Channel = "voice"
	ChannelBoth  Channel = "both"
)

// LeadStatus is the mutable lifecycle status of a persisted lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// DefaultSearchLimit is used when SearchCriteria.Limit is unset.
const DefaultSearchLimit = 50

// Range is an inclusive numeric range. A nil bound is open-ended.
type Range struct {
	Min *int `json:"min,omitempty" yaml:"min,omitempty"`
	Max *int `json:"max,omitempty" yaml:"max,omitempty"`
}

// Location narrows a search geographically.
type Location struct {
	City        string `json:"city,omitempty" yaml:"city,omitempty"`
	State       string `json:"state,omitempty" yaml:"state,omitempty"`
	Country     string `json:"country,omitempty" yaml:"country,omitempty"`
	RadiusMiles int    `json:"radius_miles,omitempty" yaml:"radius_miles,omitempty"`
}

// SearchCriteria describes a prospect search.
type SearchCriteria struct {
	Industries  []string  `json:"industries,omitempty" yaml:"industries,omitempty"`
	Location    *Location `json:"location,omitempty" yaml:"location,omitempty"`
	CompanySize *Range    `json:"company_size,omitempty" yaml:"company_size,omitempty"`
	Revenue     *Range    `json:"revenue,omitempty" yaml:"revenue,omitempty"`
	JobTitles   []string  `json:"job_titles,omitempty" yaml:"job_titles,omitempty"`
	Keywords    []string  `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Limit       int       `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// EffectiveLimit returns Limit, or DefaultSearchLimit when unset.
func (c SearchCriteria) EffectiveLimit() int {
	if c.Limit <= 0 {
		return DefaultSearchLimit
	}
	return c.Limit
}

// RawLead is a normalized search result. It is produced by a search and
// consumed immediately by enrichment.
type RawLead struct {
	CompanyName        string    `json:"company_name"`
	CompanyDomain      string    `json:"company_domain"`
	CompanyPhone       string    `json:"company_phone"`
	CompanyIndustry    string    `json:"company_industry"`
	CompanyEmployees   int       `json:"company_employees"`
	CompanyRevenue     string    `json:"company_revenue"`
	CompanyDescription string    `json:"company_description"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	FullName           string    `json:"full_name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	JobTitle           string    `json:"job_title"`
	ProfileURL         string    `json:"profile_url"`
	City               string    `json:"city"`
	State              string    `json:"state"`
	Country            string    `json:"country"`
	SourceID           string    `json:"source_id"`
	Confidence         int       `json:"confidence"`
	LastUpdated        time.Time `json:"last_updated"`
}

// HasDirectPhone reports whether the contact has their own phone number. A
// company switchboard number does not count.
func (l RawLead) HasDirectPhone() bool {
	return strings.TrimSpace(l.Phone) != ""
}

// ResearchPayload is the AI-derived research attached to a lead.
type ResearchPayload struct {
	PainPoints       []string `json:"pain_points"`
	BuyingSignals    []string `json:"buying_signals"`
	DecisionMakers   []string `json:"decision_makers"`
	CompetitorInfo   string   `json:"competitor_info"`
	RecentNews       []string `json:"recent_news"`
	OutreachStrategy string   `json:"outreach_strategy"`
	EmailSubject     string   `json:"email_subject"`
	VoicePitch       string   `json:"voice_pitch"`
	Confidence       int      `json:"confidence"`
}

// EnrichedLead is a RawLead plus research, score and derived segmentation.
// Segment and RecommendedChannel are derived from QualificationScore at
// creation time and never recomputed on the snapshot.
type EnrichedLead struct {
	RawLead
	// LeadID is set once the lead has been persisted.
	LeadID             string          `json:"lead_id,omitempty"`
	Research           ResearchPayload `json:"research"`
	Segment            Segment         `json:"segment"`
	QualificationScore int             `json:"qualification_score"`
	RecommendedChannel Channel         `json:"recommended_channel"`
	EstimatedCloseDate time.Time       `json:"estimated_close_date"`
	EstimatedDealValue float64         `json:"estimated_deal_value"`
	Degraded           bool            `json:"degraded"`
}

// LeadRecord is a persisted lead. QualificationScore and Status are mutated
// by engagement tracking independently of the enrichment snapshot.
type LeadRecord struct {
	ID                 string       `json:"id"`
	BusinessID         string       `json:"business_id"`
	Lead               EnrichedLead `json:"lead"`
	QualificationScore int          `json:"qualification_score"`
	Status             LeadStatus   `json:"status"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// LeadState is the mutable score/status pair of a persisted lead.
type LeadState struct {
	QualificationScore int        `json:"qualification_score"`
	Status             LeadStatus `json:"status"`
}

// AddScore returns the state after adding points. A new lead whose score
// reaches qualifyAt becomes qualified; no other status changes.
func (s LeadState) AddScore(points, qualifyAt int) LeadState {
	s.QualificationScore += points
	if s.Status == LeadStatusNew && s.QualificationScore >= qualifyAt {
		s.Status = LeadStatusQualified
	}
	return s
}

// TargetID identifies the lead in campaign target lists: the persisted id
// when known, else the provider's source id.
func (l EnrichedLead) TargetID() string {
	if l.LeadID != "" {
		return l.LeadID
	}
	return l.SourceID
}
