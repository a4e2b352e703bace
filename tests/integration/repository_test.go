//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
	"github.com/bissquit/incident-metrics/internal/incidents"
	incidentspostgres "github.com/bissquit/incident-metrics/internal/incidents/postgres"
	"github.com/bissquit/incident-metrics/internal/reliability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_SaveMetricsAudited(t *testing.T) {
	resetIncidents(t)
	client := newTestClient(t)
	repo := incidentspostgres.NewRepository(testDB, time.UTC)
	ctx := context.Background()

	inc := createIncident(t, client, "2025-04-01T10:00:00Z")
	before := updatedAt(t, inc.ID)

	mttr := domain.Days(2)
	mtbf := 91
	err := repo.SaveMetrics(ctx, inc.ID, &mttr, &mtbf, reliability.SaveOptions{Audit: true})
	require.NoError(t, err)

	var oldMTTR, newMTTR *int64
	var oldMTBF, newMTBF *int
	err = testDB.QueryRow(ctx, `
		SELECT old_mttr, new_mttr, old_mtbf, new_mtbf
		FROM incident_metric_changes WHERE incident_id = $1
	`, inc.ID).Scan(&oldMTTR, &newMTTR, &oldMTBF, &newMTBF)
	require.NoError(t, err)

	assert.Nil(t, oldMTTR)
	assert.Nil(t, oldMTBF)
	require.NotNil(t, newMTTR)
	assert.Equal(t, int64(-2), *newMTTR)
	require.NotNil(t, newMTBF)
	assert.Equal(t, 91, *newMTBF)

	assert.Equal(t, before, updatedAt(t, inc.ID))
}

func TestRepository_SaveMetricsNotifies(t *testing.T) {
	resetIncidents(t)
	client := newTestClient(t)
	repo := incidentspostgres.NewRepository(testDB, time.UTC)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	inc := createIncident(t, client, "2025-04-01T10:00:00Z")

	conn, err := testDB.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	_, err = conn.Exec(ctx, "LISTEN "+incidentspostgres.NotifyChannel)
	require.NoError(t, err)

	mtbf := 91
	err = repo.SaveMetrics(ctx, inc.ID, nil, &mtbf, reliability.SaveOptions{Notify: true})
	require.NoError(t, err)

	notification, err := conn.Conn().WaitForNotification(ctx)
	require.NoError(t, err)
	assert.Equal(t, incidentspostgres.NotifyChannel, notification.Channel)
	assert.Equal(t, itoa(inc.ID), notification.Payload)

	_, err = conn.Exec(ctx, "UNLISTEN *")
	require.NoError(t, err)
}

func TestRepository_SaveMetricsUnknownIncident(t *testing.T) {
	repo := incidentspostgres.NewRepository(testDB, time.UTC)

	mtbf := 1
	err := repo.SaveMetrics(context.Background(), 987654, nil, &mtbf, reliability.SaveOptions{})

	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
}

func TestRepository_ListWeeklyCandidates(t *testing.T) {
	resetIncidents(t)
	client := newTestClient(t)
	repo := incidentspostgres.NewRepository(testDB, time.UTC)

	keep := createIncident(t, client, "2025-05-01T10:00:00Z", withFundStatus(domain.FundStatusConfirmedLoss))
	createIncident(t, client, "2025-05-02T10:00:00Z", withFundStatus(domain.FundStatusPotentialRecovery))
	createIncident(t, client, "2025-05-03T10:00:00Z", withClassification(domain.ClassificationIssue))
	createIncident(t, client, "2026-01-01T00:00:00Z")

	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	list, err := repo.ListWeeklyCandidates(context.Background(), from, from.AddDate(1, 0, 0))
	require.NoError(t, err)

	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)
}
