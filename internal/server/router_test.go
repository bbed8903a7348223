package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/engagement"
	"github.com/sells-group/leadflow/internal/store"
)

type fakeTracker struct {
	err    error
	leadID string
	event  engagement.Event
}

func (f *fakeTracker) TrackEmailEngagement(_ context.Context, leadID string, ev engagement.Event) error {
	f.leadID, f.event = leadID, ev
	return f.err
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email-events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewRouter(&fakeTracker{}, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetrics(t *testing.T) {
	h := NewRouter(&fakeTracker{}, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestEmailEvent_Accepted(t *testing.T) {
	ft := &fakeTracker{}
	rec := post(t, NewRouter(ft, Options{}), `{"lead_id":"l1","event":"opened"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "l1", ft.leadID)
	assert.Equal(t, engagement.EventOpened, ft.event)
}

func TestEmailEvent_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		trackerErr error
		want       int
	}{
		{"malformed", `{`, nil, http.StatusBadRequest},
		{"unknown event", `{"lead_id":"l1","event":"bounced"}`, nil, http.StatusBadRequest},
		{"lead not found", `{"lead_id":"l1","event":"opened"}`, eris.Wrap(store.ErrNotFound, "lead l1"), http.StatusNotFound},
		{"store failure", `{"lead_id":"l1","event":"opened"}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, NewRouter(&fakeTracker{err: tt.trackerErr}, Options{}), tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestCORS(t *testing.T) {
	h := NewRouter(&fakeTracker{}, Options{CORSOrigins: []string{"https://app.example.com"}})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
