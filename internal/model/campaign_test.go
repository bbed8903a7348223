package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMetrics_Advance(t *testing.T) {
	t.Parallel()

	m := EmailMetrics{}
	require.NoError(t, m.Advance(EmailMetrics{Sent: 10, Opened: 4}))
	require.NoError(t, m.Advance(EmailMetrics{Sent: 10, Opened: 5, Clicked: 1}))
	assert.Equal(t, EmailMetrics{Sent: 10, Opened: 5, Clicked: 1}, m)

	err := m.Advance(EmailMetrics{Sent: 9, Opened: 5, Clicked: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCounterRegression))
	assert.Equal(t, 10, m.Sent, "rejected update must not mutate")
}

func TestVoiceMetrics_Advance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   VoiceMetrics
		next    VoiceMetrics
		wantErr bool
	}{
		{"grows", VoiceMetrics{}, VoiceMetrics{CallsMade: 3, CallsConnected: 2, AppointmentsBooked: 1}, false},
		{"unchanged", VoiceMetrics{CallsMade: 1}, VoiceMetrics{CallsMade: 1}, false},
		{"made decreases", VoiceMetrics{CallsMade: 4}, VoiceMetrics{CallsMade: 3}, true},
		{"connected exceeds made", VoiceMetrics{}, VoiceMetrics{CallsMade: 1, CallsConnected: 2}, true},
		{"booked exceeds connected", VoiceMetrics{}, VoiceMetrics{CallsMade: 2, CallsConnected: 1, AppointmentsBooked: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := tt.start
			err := m.Advance(tt.next)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrCounterRegression)
				assert.Equal(t, tt.start, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.next, m)
		})
	}
}

func TestSegmentRank(t *testing.T) {
	t.Parallel()

	assert.Less(t, SegmentCold.Rank(), SegmentWarm.Rank())
	assert.Less(t, SegmentWarm.Rank(), SegmentHot.Rank())
	assert.Equal(t, -1, Segment("lukewarm").Rank())
}

func TestSearchCriteria_EffectiveLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultSearchLimit, SearchCriteria{}.EffectiveLimit())
	assert.Equal(t, 10, SearchCriteria{Limit: 10}.EffectiveLimit())
}

func TestRawLead_HasDirectPhone(t *testing.T) {
	t.Parallel()

	assert.False(t, RawLead{}.HasDirectPhone())
	assert.True(t, RawLead{Phone: "555-0100"}.HasDirectPhone())
	assert.False(t, RawLead{CompanyPhone: "555-0199"}.HasDirectPhone())
	assert.False(t, RawLead{Phone: "  "}.HasDirectPhone())
}

func TestLeadState_AddScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   LeadState
		pts  int
		want LeadState
	}{
		{"below threshold", LeadState{QualificationScore: 30, Status: LeadStatusNew}, 10, LeadState{QualificationScore: 40, Status: LeadStatusNew}},
		{"reaches threshold", LeadState{QualificationScore: 40, Status: LeadStatusNew}, 10, LeadState{QualificationScore: 50, Status: LeadStatusQualified}},
		{"contacted stays", LeadState{QualificationScore: 40, Status: LeadStatusContacted}, 50, LeadState{QualificationScore: 90, Status: LeadStatusContacted}},
		{"no cap", LeadState{QualificationScore: 95, Status: LeadStatusQualified}, 50, LeadState{QualificationScore: 145, Status: LeadStatusQualified}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.AddScore(tt.pts, 50))
		})
	}
}

func TestObjectionKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"too_busy", "no_budget", "not_decision_maker", "already_have_solution", "need_more_info"}, ObjectionKeys)
}

func TestEnrichedLead_TargetID(t *testing.T) {
	t.Parallel()

	l := EnrichedLead{RawLead: RawLead{SourceID: "apollo-1"}}
	assert.Equal(t, "apollo-1", l.TargetID())
	l.LeadID = "7d0c"
	assert.Equal(t, "7d0c", l.TargetID())
}
