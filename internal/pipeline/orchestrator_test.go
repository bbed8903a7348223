package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/agentcache"
	"github.com/sells-group/leadflow/internal/model"
)

func TestPartition(t *testing.T) {
	leads := []model.EnrichedLead{
		lead("1", model.SegmentHot),
		lead("2", model.SegmentCold),
		lead("3", model.SegmentWarm),
		lead("4", model.SegmentCold),
	}
	cold, warmHot := Partition(leads)
	require.Len(t, cold, 2)
	require.Len(t, warmHot, 2)
	assert.Equal(t, "2", cold[0].SourceID)
	assert.Equal(t, "4", cold[1].SourceID)
	assert.Equal(t, "1", warmHot[0].SourceID)
	assert.Equal(t, "3", warmHot[1].SourceID)
}

func TestAutoCreateCampaigns_SegmentInvariants(t *testing.T) {
	gen := &mockGenerator{}
	st := &mockCampaignStore{}
	leads := []model.EnrichedLead{lead("c", model.SegmentCold), lead("w", model.SegmentWarm)}

	// A misbehaving generator cannot produce a non-cold email campaign or a
	// cold voice campaign.
	gen.On("GenerateEmailCampaign", mock.Anything, "biz-1", []model.EnrichedLead{leads[0]}).
		Return(model.EmailCampaign{Name: "e", TargetSegment: model.SegmentWarm, Status: model.CampaignStatusActive})
	gen.On("GenerateVoiceCampaign", mock.Anything, "biz-1", []model.EnrichedLead{leads[1]}).
		Return(model.VoiceCampaign{Name: "v", TargetSegment: model.SegmentCold})

	st.On("InsertEmailCampaign", mock.Anything, mock.MatchedBy(func(c model.EmailCampaign) bool {
		return c.TargetSegment == model.SegmentCold && c.Status == model.CampaignStatusDraft
	})).Return("email-1", nil)
	st.On("InsertVoiceCampaign", mock.Anything, mock.MatchedBy(func(c model.VoiceCampaign) bool {
		return c.TargetSegment == model.SegmentWarm && c.Status == model.CampaignStatusDraft
	})).Return("voice-1", nil)

	res := NewOrchestrator(gen, st).AutoCreateCampaigns(context.Background(), "biz-1", leads)

	require.NotNil(t, res.Email)
	require.NotNil(t, res.Voice)
	assert.Equal(t, "email-1", res.Email.ID)
	assert.Equal(t, model.SegmentCold, res.Email.TargetSegment)
	assert.Equal(t, "voice-1", res.Voice.ID)
	assert.NotEqual(t, model.SegmentCold, res.Voice.TargetSegment)
	gen.AssertExpectations(t)
	st.AssertExpectations(t)
}

func TestAutoCreateCampaigns_HotTargetKept(t *testing.T) {
	gen := &mockGenerator{}
	st := &mockCampaignStore{}
	leads := []model.EnrichedLead{lead("h", model.SegmentHot)}

	gen.On("GenerateVoiceCampaign", mock.Anything, "biz-1", leads).
		Return(model.VoiceCampaign{TargetSegment: model.SegmentHot})
	st.On("InsertVoiceCampaign", mock.Anything, mock.Anything).Return("voice-1", nil)

	res := NewOrchestrator(gen, st).AutoCreateCampaigns(context.Background(), "biz-1", leads)

	assert.Nil(t, res.Email)
	require.NotNil(t, res.Voice)
	assert.Equal(t, model.SegmentHot, res.Voice.TargetSegment)
	gen.AssertNotCalled(t, "GenerateEmailCampaign", mock.Anything, mock.Anything, mock.Anything)
}

func TestAutoCreateCampaigns_PersistenceFailureIsolated(t *testing.T) {
	gen := &mockGenerator{}
	st := &mockCampaignStore{}
	leads := []model.EnrichedLead{lead("c", model.SegmentCold), lead("h", model.SegmentHot)}

	gen.On("GenerateEmailCampaign", mock.Anything, mock.Anything, mock.Anything).
		Return(model.EmailCampaign{TargetSegment: model.SegmentCold})
	gen.On("GenerateVoiceCampaign", mock.Anything, mock.Anything, mock.Anything).
		Return(model.VoiceCampaign{TargetSegment: model.SegmentHot})
	st.On("InsertEmailCampaign", mock.Anything, mock.Anything).Return("", errors.New("connection reset"))
	st.On("InsertVoiceCampaign", mock.Anything, mock.Anything).Return("voice-1", nil)

	res := NewOrchestrator(gen, st).AutoCreateCampaigns(context.Background(), "biz-1", leads)

	assert.Nil(t, res.Email)
	require.NotNil(t, res.Voice)
	assert.Equal(t, "voice-1", res.Voice.ID)
}

func TestAutoCreateCampaigns_Empty(t *testing.T) {
	gen := &mockGenerator{}
	st := &mockCampaignStore{}

	res := NewOrchestrator(gen, st).AutoCreateCampaigns(context.Background(), "biz-1", nil)

	assert.Nil(t, res.Email)
	assert.Nil(t, res.Voice)
	gen.AssertNotCalled(t, "GenerateEmailCampaign", mock.Anything, mock.Anything, mock.Anything)
	gen.AssertNotCalled(t, "GenerateVoiceCampaign", mock.Anything, mock.Anything, mock.Anything)
}

func TestAutoCreateCampaigns_LinksVoiceAgent(t *testing.T) {
	ctx := context.Background()
	cache := agentcache.NewMemory(0, map[string]string{agentcache.TemplateVoiceOutreach: "agent-42"})
	require.NoError(t, cache.Init(ctx))

	gen := &mockGenerator{}
	st := &mockCampaignStore{}
	gen.On("GenerateVoiceCampaign", mock.Anything, mock.Anything, mock.Anything).
		Return(model.VoiceCampaign{TargetSegment: model.SegmentWarm})
	st.On("InsertVoiceCampaign", mock.Anything, mock.MatchedBy(func(c model.VoiceCampaign) bool {
		return c.AgentID == "agent-42"
	})).Return("voice-1", nil)

	res := NewOrchestrator(gen, st, WithAgentCache(cache)).
		AutoCreateCampaigns(ctx, "biz-1", []model.EnrichedLead{lead("w", model.SegmentWarm)})

	require.NotNil(t, res.Voice)
	assert.Equal(t, "agent-42", res.Voice.AgentID)
	st.AssertExpectations(t)
}
