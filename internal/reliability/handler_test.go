package reliability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *mockRepository, now time.Time) http.Handler {
	reporter := NewWeeklyReporter(repo, nil)
	reporter.now = func() time.Time { return now }

	h := NewHandler(NewRecalculator(RecalculatorConfig{}, repo, nil), reporter)
	h.now = func() time.Time { return now }

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func TestHandler_Recalculate(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	router := newTestRouter(repo, at("2025-02-01 00:00"))

	req := httptest.NewRequest(http.MethodPost, "/metrics/recalculate", strings.NewReader(`{"dry_run": true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result Result
	decodeData(t, rec, &result)
	assert.True(t, result.DryRun)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.MTTRUpdated)
	assert.Equal(t, 3, result.MTBFUpdated)
	assert.Empty(t, repo.saves)
}

func TestHandler_Recalculate_InvalidBody(t *testing.T) {
	router := newTestRouter(newMockRepository(), time.Now())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"year":`},
		{"year too small", `{"year": 1900}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/metrics/recalculate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_Recalculate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		repo     func() *mockRepository
		expected int
	}{
		{
			name: "load failure",
			repo: func() *mockRepository {
				m := newMockRepository()
				m.listErr = assert.AnError
				return m
			},
			expected: http.StatusServiceUnavailable,
		},
		{
			name: "missing incident date",
			repo: func() *mockRepository {
				m := newMockRepository(sampleIncidents()...)
				m.incidents[0].IncidentDate = time.Time{}
				return m
			},
			expected: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.repo(), time.Now())

			req := httptest.NewRequest(http.MethodPost, "/metrics/recalculate", strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestHandler_ListWeeks(t *testing.T) {
	router := newTestRouter(newMockRepository(), at("2025-06-01 00:00"))

	req := httptest.NewRequest(http.MethodGet, "/reports/weeks?year=2025", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var weeks []Week
	decodeData(t, rec, &weeks)
	require.Len(t, weeks, 53)
	assert.Equal(t, 2, weeks[1].Number)
	assert.Equal(t, date(2025, time.January, 3), weeks[1].Start.UTC())
}

func TestHandler_WeeklySummary_DefaultsToCurrentYear(t *testing.T) {
	repo := newMockRepository(weeklyIncident(1, "2025-01-03 10:00", "Open"))
	router := newTestRouter(repo, at("2025-01-05 00:00"))

	req := httptest.NewRequest(http.MethodGet, "/reports/weekly", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []WeekSummary
	decodeData(t, rec, &summaries)
	require.Len(t, summaries, 2)
	assert.Equal(t, 1, summaries[1].OpenCount)
	assert.Equal(t, "Jan 03 - Jan 09", summaries[1].DateRangeLabel)
}

func TestHandler_InvalidYearQuery(t *testing.T) {
	router := newTestRouter(newMockRepository(), time.Now())

	for _, path := range []string{"/reports/weekly?year=abc", "/reports/weeks?year=1800"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}
