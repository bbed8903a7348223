package crm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/pkg/salesforce"
)

type mockSF struct{ mock.Mock }

func (m *mockSF) Query(ctx context.Context, soql string, out any) error {
	return m.Called(ctx, soql, out).Error(0)
}

func (m *mockSF) InsertCollection(ctx context.Context, sObjectName string, records []map[string]any) ([]salesforce.CollectionResult, error) {
	args := m.Called(ctx, sObjectName, records)
	res, _ := args.Get(0).([]salesforce.CollectionResult)
	return res, args.Error(1)
}

func (m *mockSF) UpdateCollection(ctx context.Context, sObjectName string, records []salesforce.CollectionRecord) ([]salesforce.CollectionResult, error) {
	args := m.Called(ctx, sObjectName, records)
	res, _ := args.Get(0).([]salesforce.CollectionResult)
	return res, args.Error(1)
}

func (m *mockSF) DescribeSObject(ctx context.Context, name string) (*salesforce.SObjectDescription, error) {
	args := m.Called(ctx, name)
	desc, _ := args.Get(0).(*salesforce.SObjectDescription)
	return desc, args.Error(1)
}

func hotLead(email, company string) model.EnrichedLead {
	return model.EnrichedLead{
		RawLead: model.RawLead{
			CompanyName:      company,
			CompanyIndustry:  "dental",
			CompanyEmployees: 40,
			FullName:         "Dana Maria Ruiz",
			Email:            email,
			CompanyPhone:     "+15125550100",
			JobTitle:         "Owner",
			City:             "Austin",
			State:            "Texas",
			SourceID:         "ap_" + company,
		},
		Research: model.ResearchPayload{
			PainPoints:       []string{"no-shows", "billing"},
			OutreachStrategy: "lead with ROI",
		},
		Segment:            model.SegmentHot,
		QualificationScore: 88,
		EstimatedDealValue: 12000,
	}
}

func noExisting(m *mockSF) {
	m.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func describeFails(m *mockSF) {
	m.On("DescribeSObject", mock.Anything, salesforce.LeadObject).Return(nil, errors.New("forbidden"))
}

func ok(ids ...string) []salesforce.CollectionResult {
	out := make([]salesforce.CollectionResult, len(ids))
	for i, id := range ids {
		out[i] = salesforce.CollectionResult{ID: id, Success: true}
	}
	return out
}

func TestExportHotLeads_InsertsNewLeads(t *testing.T) {
	m := new(mockSF)
	describeFails(m)
	noExisting(m)

	var sent []map[string]any
	m.On("InsertCollection", mock.Anything, salesforce.LeadObject, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).([]map[string]any) }).
		Return(ok("00Q1", "00Q2"), nil).Once()

	n, err := New(m).ExportHotLeads(context.Background(), []model.EnrichedLead{
		hotLead("dana@brightsmile.com", "Bright Smile Dental"),
		hotLead("", "Lakeside Ortho"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, sent, 2)
	first := sent[0]
	assert.Equal(t, "Dana Maria", first["FirstName"])
	assert.Equal(t, "Ruiz", first["LastName"])
	assert.Equal(t, "Bright Smile Dental", first["Company"])
	assert.Equal(t, "+15125550100", first["Phone"])
	assert.Equal(t, RatingHot, first["Rating"])
	assert.Equal(t, DefaultLeadSource, first["LeadSource"])
	assert.Equal(t, 40, first["NumberOfEmployees"])
	assert.Contains(t, first["Description"], "Pain points: no-shows; billing")
	assert.Contains(t, first["Description"], "Estimated deal value: $12000")
	assert.NotContains(t, first, "Country")
	assert.NotContains(t, sent[1], "Email")
	m.AssertNotCalled(t, "UpdateCollection", mock.Anything, mock.Anything, mock.Anything)
}

func TestExportHotLeads_UpdatesExistingByEmail(t *testing.T) {
	m := new(mockSF)
	describeFails(m)
	m.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*[]salesforce.Lead) = []salesforce.Lead{{ID: "00QOLD", Email: "DANA@brightsmile.com"}}
		}).
		Return(nil)

	var updated []salesforce.CollectionRecord
	m.On("UpdateCollection", mock.Anything, salesforce.LeadObject, mock.Anything).
		Run(func(args mock.Arguments) { updated = args.Get(2).([]salesforce.CollectionRecord) }).
		Return(ok("00QOLD"), nil).Once()
	m.On("InsertCollection", mock.Anything, salesforce.LeadObject, mock.Anything).
		Return(ok("00QNEW"), nil).Once()

	n, err := New(m).ExportHotLeads(context.Background(), []model.EnrichedLead{
		hotLead("dana@brightsmile.com", "Bright Smile Dental"),
		hotLead("sam@northside.com", "Northside HVAC"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, updated, 1)
	assert.Equal(t, "00QOLD", updated[0].ID)
	assert.Equal(t, RatingHot, updated[0].Fields["Rating"])
	assert.NotContains(t, updated[0].Fields, "Company")
	m.AssertExpectations(t)
}

func TestExportHotLeads_SkipsNonHotAndDuplicates(t *testing.T) {
	m := new(mockSF)
	describeFails(m)
	noExisting(m)
	m.On("InsertCollection", mock.Anything, salesforce.LeadObject,
		mock.MatchedBy(func(r []map[string]any) bool { return len(r) == 1 })).
		Return(ok("00Q1"), nil).Once()

	warm := hotLead("warm@acme.com", "Acme")
	warm.Segment = model.SegmentWarm

	n, err := New(m).ExportHotLeads(context.Background(), []model.EnrichedLead{
		hotLead("dana@brightsmile.com", "Bright Smile Dental"),
		hotLead("Dana@BrightSmile.com ", "Bright Smile Dental"),
		warm,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	m.AssertExpectations(t)
}

func TestExportHotLeads_NothingHot(t *testing.T) {
	m := new(mockSF)
	describeFails(m)

	cold := hotLead("a@b.com", "Acme")
	cold.Segment = model.SegmentCold
	n, err := New(m).ExportHotLeads(context.Background(), []model.EnrichedLead{cold})
	require.NoError(t, err)
	assert.Zero(t, n)
	m.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestExportHotLeads_CountsOnlySuccesses(t *testing.T) {
	m := new(mockSF)
	describeFails(m)
	noExisting(m)
	m.On("InsertCollection", mock.Anything, salesforce.LeadObject, mock.Anything).
		Return([]salesforce.CollectionResult{
			{ID: "00Q1", Success: true},
			{Success: false, Errors: []string{"DUPLICATES_DETECTED"}},
		}, nil)

	n, err := New(m).ExportHotLeads(context.Background(), []model.EnrichedLead{
		hotLead("a@acme.com", "Acme"),
		hotLead("b@acme.com", "Acme"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExportHotLeads_LookupError(t *testing.T) {
	m := new(mockSF)
	describeFails(m)
	m.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("session expired"))

	n, err := New(m).ExportHotLeads(context.Background(), []model.EnrichedLead{hotLead("a@acme.com", "Acme")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crm: look up existing leads")
	assert.Zero(t, n)
	m.AssertNotCalled(t, "InsertCollection", mock.Anything, mock.Anything, mock.Anything)
}

func TestExportHotLeads_BatchErrorKeepsPartialCount(t *testing.T) {
	m := new(mockSF)
	describeFails(m)
	noExisting(m)
	m.On("InsertCollection", mock.Anything, salesforce.LeadObject, mock.Anything).Return(ok("00Q1"), nil).Once()
	m.On("InsertCollection", mock.Anything, salesforce.LeadObject, mock.Anything).Return(nil, errors.New("503")).Once()

	n, err := New(m, WithBatchSize(1)).ExportHotLeads(context.Background(), []model.EnrichedLead{
		hotLead("a@acme.com", "Acme"),
		hotLead("b@acme.com", "Acme"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crm: insert leads")
	assert.Equal(t, 1, n)
}

func TestExportHotLeads_UsesDescribedLengthsOnce(t *testing.T) {
	m := new(mockSF)
	m.On("DescribeSObject", mock.Anything, salesforce.LeadObject).
		Return(&salesforce.SObjectDescription{Name: "Lead", Fields: []salesforce.SObjectField{
			{Name: "Company", Length: 10},
			{Name: "LastName", Length: 80},
		}}, nil).Once()
	noExisting(m)

	var sent []map[string]any
	m.On("InsertCollection", mock.Anything, salesforce.LeadObject, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).([]map[string]any) }).
		Return(ok("00Q1"), nil)

	e := New(m, WithLeadSource("Partner Referral"))
	for i := 0; i < 2; i++ {
		_, err := e.ExportHotLeads(context.Background(), []model.EnrichedLead{hotLead("a@acme.com", "Bright Smile Dental")})
		require.NoError(t, err)
	}

	require.Len(t, sent, 1)
	assert.Equal(t, "Bright Smi", sent[0]["Company"])
	assert.Equal(t, "Partner Referral", sent[0]["LeadSource"])
	m.AssertNumberOfCalls(t, "DescribeSObject", 1)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		lead        model.EnrichedLead
		first, last string
	}{
		{model.EnrichedLead{RawLead: model.RawLead{FirstName: "Dana", LastName: "Ruiz"}}, "Dana", "Ruiz"},
		{model.EnrichedLead{RawLead: model.RawLead{FullName: "Cher"}}, "", "Cher"},
		{model.EnrichedLead{RawLead: model.RawLead{FirstName: "Sam", FullName: "Samuel Okafor"}}, "Sam", "Okafor"},
		{model.EnrichedLead{}, "", unknown},
	}
	for _, tt := range tests {
		first, last := splitName(tt.lead)
		assert.Equal(t, tt.first, first)
		assert.Equal(t, tt.last, last)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "hello", truncate("hello", 0))
	assert.Equal(t, strings.Repeat("a", 3), truncate("aaa", 3))
}
