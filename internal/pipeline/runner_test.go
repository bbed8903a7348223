package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/leadsource"
	"github.com/sells-group/leadflow/internal/model"
)

type runnerDeps struct {
	searcher *mockSearcher
	enricher *mockEnricher
	saver    *mockLeadSaver
	gen      *mockGenerator
	campaign *mockCampaignStore
}

func newRunnerDeps() runnerDeps {
	return runnerDeps{
		searcher: &mockSearcher{},
		enricher: &mockEnricher{},
		saver:    &mockLeadSaver{},
		gen:      &mockGenerator{},
		campaign: &mockCampaignStore{},
	}
}

func (d runnerDeps) runner(opts ...RunnerOption) *Runner {
	return NewRunner(d.searcher, d.enricher, d.saver, NewOrchestrator(d.gen, d.campaign), opts...)
}

func TestRunner_Run(t *testing.T) {
	d := newRunnerDeps()
	criteria := model.SearchCriteria{Industries: []string{"plumbing"}, Limit: 3}
	raw := []model.RawLead{{SourceID: "a"}, {SourceID: "b"}, {SourceID: "c"}}
	enriched := []model.EnrichedLead{lead("a", model.SegmentCold), lead("b", model.SegmentHot), lead("c", model.SegmentWarm)}
	enriched[0].Degraded = true

	d.searcher.On("SearchLeads", mock.Anything, criteria).Return(raw, nil)
	d.enricher.On("EnrichLeads", mock.Anything, raw).Return(enriched)
	d.saver.On("SaveLeads", mock.Anything, "biz-1", enriched).Return([]string{"id-a", "id-b", "id-c"}, nil)
	d.gen.On("GenerateEmailCampaign", mock.Anything, "biz-1", mock.MatchedBy(func(ls []model.EnrichedLead) bool {
		return len(ls) == 1 && ls[0].LeadID == "id-a"
	})).Return(model.EmailCampaign{TargetSegment: model.SegmentCold})
	d.gen.On("GenerateVoiceCampaign", mock.Anything, "biz-1", mock.Anything).
		Return(model.VoiceCampaign{TargetSegment: model.SegmentHot})
	d.campaign.On("InsertEmailCampaign", mock.Anything, mock.Anything).Return("email-1", nil)
	d.campaign.On("InsertVoiceCampaign", mock.Anything, mock.Anything).Return("voice-1", nil)

	exp := &mockExporter{}
	exp.On("ExportHotLeads", mock.Anything, mock.MatchedBy(func(ls []model.EnrichedLead) bool {
		return len(ls) == 1 && ls[0].SourceID == "b"
	})).Return(1, nil)

	sum, err := d.runner(WithExporter(exp), WithRunTimeout(time.Minute)).Run(context.Background(), "biz-1", criteria)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Searched)
	assert.Equal(t, 3, sum.Enriched)
	assert.Equal(t, 1, sum.Degraded)
	assert.Equal(t, 3, sum.Saved)
	assert.Equal(t, map[model.Segment]int{model.SegmentCold: 1, model.SegmentHot: 1, model.SegmentWarm: 1}, sum.BySegment)
	assert.Equal(t, "email-1", sum.EmailCampaignID)
	assert.Equal(t, "voice-1", sum.VoiceCampaignID)
	assert.Equal(t, 1, sum.Exported)

	names := make([]string, len(sum.Phases))
	for i, p := range sum.Phases {
		names[i] = p.Name
		assert.Equal(t, PhaseComplete, p.Status, p.Name)
	}
	assert.Equal(t, []string{"search", "enrich", "save_leads", "campaigns", "crm_export"}, names)
	exp.AssertExpectations(t)
}

func TestRunner_Run_SearchErrorIsFatal(t *testing.T) {
	d := newRunnerDeps()
	d.searcher.On("SearchLeads", mock.Anything, mock.Anything).
		Return(nil, &leadsource.ConfigurationError{Setting: "apollo.key"})

	sum, err := d.runner().Run(context.Background(), "biz-1", model.SearchCriteria{})
	require.Error(t, err)

	var cfgErr *leadsource.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	require.Len(t, sum.Phases, 1)
	assert.Equal(t, PhaseFailed, sum.Phases[0].Status)
	d.enricher.AssertNotCalled(t, "EnrichLeads", mock.Anything, mock.Anything)
}

func TestRunner_Run_SaveFailureContinues(t *testing.T) {
	d := newRunnerDeps()
	raw := []model.RawLead{{SourceID: "a"}}
	enriched := []model.EnrichedLead{lead("a", model.SegmentCold)}

	d.searcher.On("SearchLeads", mock.Anything, mock.Anything).Return(raw, nil)
	d.enricher.On("EnrichLeads", mock.Anything, raw).Return(enriched)
	d.saver.On("SaveLeads", mock.Anything, "biz-1", enriched).Return(nil, errors.New("db down"))
	d.gen.On("GenerateEmailCampaign", mock.Anything, "biz-1", enriched).
		Return(model.EmailCampaign{TargetSegment: model.SegmentCold})
	d.campaign.On("InsertEmailCampaign", mock.Anything, mock.Anything).Return("email-1", nil)

	sum, err := d.runner().Run(context.Background(), "biz-1", model.SearchCriteria{})
	require.NoError(t, err)

	assert.Zero(t, sum.Saved)
	assert.Equal(t, "email-1", sum.EmailCampaignID)
	assert.Equal(t, PhaseFailed, sum.Phases[2].Status)
	assert.Contains(t, sum.Phases[2].Error, "db down")
	assert.Equal(t, PhaseSkipped, sum.Phases[4].Status)
}
