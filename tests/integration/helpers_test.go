//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
	"github.com/bissquit/incident-metrics/internal/testutil"
	"github.com/stretchr/testify/require"
)

// resetIncidents empties the incident tables. Recalculation is global, so every
// test that depends on neighbours starts from a clean table.
func resetIncidents(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec(context.Background(),
		"TRUNCATE incident_metric_changes, incidents RESTART IDENTITY")
	require.NoError(t, err)
}

type incidentOption func(map[string]any)

func withStop(stop string) incidentOption {
	return func(m map[string]any) { m["stop_bleeding_at"] = stop }
}

func withFundStatus(status domain.FundStatus) incidentOption {
	return func(m map[string]any) { m["fund_status"] = string(status) }
}

func withStatus(status domain.IncidentStatus) incidentOption {
	return func(m map[string]any) { m["incident_status"] = string(status) }
}

func withClassification(c domain.Classification) incidentOption {
	return func(m map[string]any) { m["classification"] = string(c) }
}

// createIncident creates an incident through the API and returns it.
func createIncident(t *testing.T, client *testutil.Client, date string, opts ...incidentOption) domain.Incident {
	t.Helper()

	payload := map[string]any{
		"title":         fmt.Sprintf("incident at %s", date),
		"incident_date": date,
		"severity":      "P2",
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/incidents", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var incident domain.Incident
	testutil.DecodeData(t, resp, &incident)
	return incident
}

func getIncident(t *testing.T, client *testutil.Client, id int64) domain.Incident {
	t.Helper()

	resp, err := client.GET(fmt.Sprintf("/api/v1/incidents/%d", id))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var incident domain.Incident
	testutil.DecodeData(t, resp, &incident)
	return incident
}

type recalculationResult struct {
	Processed   int  `json:"processed"`
	MTTRUpdated int  `json:"mttr_updated"`
	MTBFUpdated int  `json:"mtbf_updated"`
	DryRun      bool `json:"dry_run"`
	Changes     []struct {
		IncidentID int64 `json:"incident_id"`
	} `json:"changes"`
}

func recalculate(t *testing.T, client *testutil.Client, body map[string]any) recalculationResult {
	t.Helper()

	resp, err := client.POST("/api/v1/metrics/recalculate", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result recalculationResult
	testutil.DecodeData(t, resp, &result)
	return result
}

func updatedAt(t *testing.T, id int64) time.Time {
	t.Helper()
	var ts time.Time
	err := testDB.QueryRow(context.Background(), "SELECT updated_at FROM incidents WHERE id = $1", id).Scan(&ts)
	require.NoError(t, err)
	return ts
}
