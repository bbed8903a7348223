package salesforce

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct{ mock.Mock }

func (m *mockClient) Query(ctx context.Context, soql string, out any) error {
	args := m.Called(ctx, soql, out)
	return args.Error(0)
}

func (m *mockClient) InsertCollection(ctx context.Context, sObjectName string, records []map[string]any) ([]CollectionResult, error) {
	args := m.Called(ctx, sObjectName, records)
	res, _ := args.Get(0).([]CollectionResult)
	return res, args.Error(1)
}

func (m *mockClient) UpdateCollection(ctx context.Context, sObjectName string, records []CollectionRecord) ([]CollectionResult, error) {
	args := m.Called(ctx, sObjectName, records)
	res, _ := args.Get(0).([]CollectionResult)
	return res, args.Error(1)
}

func (m *mockClient) DescribeSObject(ctx context.Context, name string) (*SObjectDescription, error) {
	args := m.Called(ctx, name)
	desc, _ := args.Get(0).(*SObjectDescription)
	return desc, args.Error(1)
}

func okResults(n int) []CollectionResult {
	out := make([]CollectionResult, n)
	for i := range out {
		out[i] = CollectionResult{ID: fmt.Sprintf("00Q%03d", i), Success: true}
	}
	return out
}

func TestFindLeadsByEmail(t *testing.T) {
	c := new(mockClient)
	var gotSOQL string
	c.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotSOQL = args.String(1)
			out := args.Get(2).(*[]Lead)
			*out = []Lead{
				{ID: "00QA", Email: "Dana@BrightSmile.com"},
				{ID: "00QB", Email: "dana@brightsmile.com"},
			}
		}).
		Return(nil).Once()

	found, err := FindLeadsByEmail(context.Background(), c, []string{
		" Dana@BrightSmile.com ", "dana@brightsmile.com", "", "o'neil@acme.com",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"dana@brightsmile.com": "00QA"}, found)
	assert.Contains(t, gotSOQL, "IsConverted = false")
	assert.Contains(t, gotSOQL, `'dana@brightsmile.com', 'o\'neil@acme.com'`)
	c.AssertExpectations(t)
}

func TestFindLeadsByEmail_NoEmailsSkipsQuery(t *testing.T) {
	c := new(mockClient)
	found, err := FindLeadsByEmail(context.Background(), c, []string{"", "  "})
	require.NoError(t, err)
	assert.Empty(t, found)
	c.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestFindLeadsByEmail_ChunksLargeInput(t *testing.T) {
	emails := make([]string, 250)
	for i := range emails {
		emails[i] = fmt.Sprintf("owner%d@example.com", i)
	}
	c := new(mockClient)
	c.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil).Times(3)

	_, err := FindLeadsByEmail(context.Background(), c, emails)
	require.NoError(t, err)
	c.AssertExpectations(t)
}

func TestFindLeadsByEmail_Error(t *testing.T) {
	c := new(mockClient)
	c.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("session expired"))

	_, err := FindLeadsByEmail(context.Background(), c, []string{"a@b.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: find leads by email")
}

func TestInsertLeads_Batches(t *testing.T) {
	records := make([]map[string]any, 5)
	for i := range records {
		records[i] = map[string]any{"LastName": fmt.Sprintf("Owner %d", i), "Company": "Acme"}
	}

	c := new(mockClient)
	c.On("InsertCollection", mock.Anything, LeadObject, mock.MatchedBy(func(r []map[string]any) bool { return len(r) == 2 })).
		Return(okResults(2), nil).Twice()
	c.On("InsertCollection", mock.Anything, LeadObject, mock.MatchedBy(func(r []map[string]any) bool { return len(r) == 1 })).
		Return(okResults(1), nil).Once()

	results, err := InsertLeads(context.Background(), c, records, 2)
	require.NoError(t, err)
	assert.Len(t, results, 5)
	c.AssertExpectations(t)
}

func TestInsertLeads_PartialOnError(t *testing.T) {
	records := make([]map[string]any, 3)
	for i := range records {
		records[i] = map[string]any{"LastName": "x", "Company": "y"}
	}

	c := new(mockClient)
	c.On("InsertCollection", mock.Anything, LeadObject, mock.Anything).Return(okResults(2), nil).Once()
	c.On("InsertCollection", mock.Anything, LeadObject, mock.Anything).Return(nil, errors.New("503")).Once()

	results, err := InsertLeads(context.Background(), c, records, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: insert leads batch 2-3")
	assert.Len(t, results, 2)
}

func TestUpdateLeads(t *testing.T) {
	c := new(mockClient)
	recs := []CollectionRecord{{ID: "00QA", Fields: map[string]any{"Rating": "Hot"}}}
	c.On("UpdateCollection", mock.Anything, LeadObject, recs).Return(okResults(1), nil).Once()

	results, err := UpdateLeads(context.Background(), c, recs, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	c.AssertExpectations(t)
}

func TestClampBatch(t *testing.T) {
	assert.Equal(t, maxBatchSize, clampBatch(0))
	assert.Equal(t, maxBatchSize, clampBatch(-1))
	assert.Equal(t, maxBatchSize, clampBatch(500))
	assert.Equal(t, 50, clampBatch(50))
}

func TestEscapeSoql(t *testing.T) {
	assert.Equal(t, `o\'neil`, escapeSoql("o'neil"))
	assert.Equal(t, `a\\b`, escapeSoql(`a\b`))
}
