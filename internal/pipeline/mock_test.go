package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadflow/internal/model"
)

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) GenerateEmailCampaign(ctx context.Context, businessID string, leads []model.EnrichedLead) model.EmailCampaign {
	args := m.Called(ctx, businessID, leads)
	return args.Get(0).(model.EmailCampaign)
}

func (m *mockGenerator) GenerateVoiceCampaign(ctx context.Context, businessID string, leads []model.EnrichedLead) model.VoiceCampaign {
	args := m.Called(ctx, businessID, leads)
	return args.Get(0).(model.VoiceCampaign)
}

type mockCampaignStore struct{ mock.Mock }

func (m *mockCampaignStore) InsertEmailCampaign(ctx context.Context, c model.EmailCampaign) (string, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Error(1)
}

func (m *mockCampaignStore) InsertVoiceCampaign(ctx context.Context, c model.VoiceCampaign) (string, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Error(1)
}

type mockSearcher struct{ mock.Mock }

func (m *mockSearcher) SearchLeads(ctx context.Context, criteria model.SearchCriteria) ([]model.RawLead, error) {
	args := m.Called(ctx, criteria)
	leads, _ := args.Get(0).([]model.RawLead)
	return leads, args.Error(1)
}

type mockEnricher struct{ mock.Mock }

func (m *mockEnricher) EnrichLeads(ctx context.Context, leads []model.RawLead) []model.EnrichedLead {
	args := m.Called(ctx, leads)
	return args.Get(0).([]model.EnrichedLead)
}

type mockLeadSaver struct{ mock.Mock }

func (m *mockLeadSaver) SaveLeads(ctx context.Context, businessID string, leads []model.EnrichedLead) ([]string, error) {
	args := m.Called(ctx, businessID, leads)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type mockExporter struct{ mock.Mock }

func (m *mockExporter) ExportHotLeads(ctx context.Context, leads []model.EnrichedLead) (int, error) {
	args := m.Called(ctx, leads)
	return args.Int(0), args.Error(1)
}

func lead(id string, seg model.Segment) model.EnrichedLead {
	return model.EnrichedLead{
		RawLead: model.RawLead{SourceID: id, CompanyName: "Co " + id},
		Segment: seg,
	}
}
