//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/incident-metrics/internal/domain"
	"github.com/bissquit/incident-metrics/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncidents_CreateGetUpdate(t *testing.T) {
	resetIncidents(t)
	client := newTestClient(t)

	created := createIncident(t, client, "2025-01-15T09:30:00Z",
		withStop("2025-01-15T11:45:00Z"),
		withFundStatus(domain.FundStatusConfirmedLoss),
	)
	assert.NotZero(t, created.ID)
	assert.Equal(t, domain.IncidentStatusOpen, created.Status)
	assert.Nil(t, created.MTTR)

	got := getIncident(t, client, created.ID)
	assert.True(t, created.IncidentDate.Equal(got.IncidentDate))
	require.NotNil(t, got.FundStatus)
	assert.Equal(t, domain.FundStatusConfirmedLoss, *got.FundStatus)

	resp, err := client.PATCH("/api/v1/incidents/"+itoa(created.ID), map[string]any{
		"fund_status":     nil,
		"incident_status": "Completed",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated domain.Incident
	testutil.DecodeData(t, resp, &updated)
	assert.Nil(t, updated.FundStatus)
	assert.NotNil(t, updated.StopBleedingAt)
	assert.Equal(t, domain.IncidentStatusCompleted, updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

func TestIncidents_NotFound(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GET("/api/v1/incidents/999999")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIncidents_ValidationErrors(t *testing.T) {
	client := newTestClient(t).WithoutValidation()

	resp, err := client.POST("/api/v1/incidents", map[string]any{
		"incident_date":    "2025-01-15T09:30:00Z",
		"stop_bleeding_at": "2025-01-15T09:00:00Z",
		"severity":         "P1",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIncidents_ListByYear(t *testing.T) {
	resetIncidents(t)
	client := newTestClient(t)

	createIncident(t, client, "2024-12-31T23:00:00Z")
	createIncident(t, client, "2025-01-01T00:00:00Z")
	createIncident(t, client, "2025-06-01T12:00:00Z", withClassification(domain.ClassificationIssue))

	resp, err := client.GET("/api/v1/incidents?year=2025")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Incidents []domain.Incident `json:"incidents"`
		Total     int               `json:"total"`
	}
	testutil.DecodeData(t, resp, &page)

	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Incidents, 2)
	assert.Equal(t, 2025, page.Incidents[1].IncidentDate.Year())
	assert.True(t, page.Incidents[0].IncidentDate.After(page.Incidents[1].IncidentDate), "newest first")
}
