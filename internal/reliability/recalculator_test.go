package reliability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savedMetrics struct {
	id   int64
	mttr *domain.MTTR
	mtbf *int
	opts SaveOptions
}

// mockRepository implements Repository over an in-memory slice.
type mockRepository struct {
	mu        sync.Mutex
	incidents []domain.Incident
	saves     []savedMetrics
	listErr   error
	saveErrAt int64
	listHook  func()
}

func newMockRepository(incidents ...domain.Incident) *mockRepository {
	return &mockRepository{incidents: incidents}
}

func (m *mockRepository) ListIncidents(_ context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	if m.listHook != nil {
		m.listHook()
	}
	if m.listErr != nil {
		return nil, m.listErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Incident, 0, len(m.incidents))
	for _, inc := range m.incidents {
		if filter.Year != nil && inc.IncidentDate.Year() != *filter.Year {
			continue
		}
		out = append(out, inc)
	}
	return out, nil
}

func (m *mockRepository) SaveMetrics(_ context.Context, id int64, mttr *domain.MTTR, mtbf *int, opts SaveOptions) error {
	if m.saveErrAt == id {
		return errors.New("connection reset")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves = append(m.saves, savedMetrics{id: id, mttr: mttr, mtbf: mtbf, opts: opts})
	for i := range m.incidents {
		if m.incidents[i].ID == id {
			m.incidents[i].MTTR = mttr
			m.incidents[i].MTBF = mtbf
		}
	}
	return nil
}

func (m *mockRepository) ListWeeklyCandidates(_ context.Context, from, to time.Time) ([]domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Incident
	for _, inc := range m.incidents {
		if !inc.IncidentDate.Before(from) && inc.IncidentDate.Before(to) {
			out = append(out, inc)
		}
	}
	return out, nil
}

func (m *mockRepository) get(id int64) domain.Incident {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inc := range m.incidents {
		if inc.ID == id {
			return inc
		}
	}
	return domain.Incident{}
}

type mockNotifier struct {
	results []*Result
	err     error
}

func (m *mockNotifier) NotifyRecalculation(_ context.Context, result *Result) error {
	m.results = append(m.results, result)
	return m.err
}

func sampleIncidents() []domain.Incident {
	resolved := at("2025-01-15 11:45")
	lossStop := at("2025-01-22 09:00")
	return []domain.Incident{
		{ID: 3, IncidentDate: at("2025-01-20 10:00")},
		{ID: 1, IncidentDate: at("2025-01-15 09:30"), StopBleedingAt: &resolved},
		{ID: 2, IncidentDate: at("2025-01-20 10:00"), StopBleedingAt: &lossStop, FundStatus: fundStatus(domain.FundStatusConfirmedLoss)},
	}
}

func intPtr(v int) *int {
	return &v
}

func TestRecalculate_UpdatesAllIncidents(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	notifier := &mockNotifier{}
	r := NewRecalculator(RecalculatorConfig{}, repo, notifier)

	result, err := r.Recalculate(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.MTTRUpdated)
	assert.Equal(t, 3, result.MTBFUpdated)
	assert.Len(t, result.Changes, 3)

	first := repo.get(1)
	require.NotNil(t, first.MTTR)
	assert.Equal(t, domain.Minutes(135), *first.MTTR)
	assert.Equal(t, intPtr(15), first.MTBF)

	second := repo.get(2)
	require.NotNil(t, second.MTTR)
	assert.Equal(t, domain.Days(3), *second.MTTR)
	assert.Equal(t, intPtr(6), second.MTBF)

	third := repo.get(3)
	assert.Nil(t, third.MTTR)
	assert.Equal(t, intPtr(1), third.MTBF)

	require.Len(t, notifier.results, 1)
	assert.Same(t, result, notifier.results[0])
}

func TestRecalculate_SavesAreQuiet(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	r := NewRecalculator(RecalculatorConfig{}, repo, nil)

	_, err := r.Recalculate(context.Background(), Options{})
	require.NoError(t, err)

	require.NotEmpty(t, repo.saves)
	for _, save := range repo.saves {
		assert.Equal(t, SaveOptions{}, save.opts)
	}
}

func TestRecalculate_SavesInIncidentOrder(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	r := NewRecalculator(RecalculatorConfig{}, repo, nil)

	_, err := r.Recalculate(context.Background(), Options{})
	require.NoError(t, err)

	ids := make([]int64, 0, len(repo.saves))
	for _, save := range repo.saves {
		ids = append(ids, save.id)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestRecalculate_Idempotent(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	r := NewRecalculator(RecalculatorConfig{}, repo, nil)

	_, err := r.Recalculate(context.Background(), Options{})
	require.NoError(t, err)
	savesAfterFirst := len(repo.saves)

	second, err := r.Recalculate(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, second.Processed)
	assert.Zero(t, second.MTTRUpdated)
	assert.Zero(t, second.MTBFUpdated)
	assert.Empty(t, second.Changes)
	assert.Len(t, repo.saves, savesAfterFirst, "unchanged incidents must not be saved")
}

func TestRecalculate_ForceResavesWithoutCountingUnchanged(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	r := NewRecalculator(RecalculatorConfig{}, repo, nil)

	_, err := r.Recalculate(context.Background(), Options{})
	require.NoError(t, err)
	repo.saves = nil

	result, err := r.Recalculate(context.Background(), Options{Force: true})
	require.NoError(t, err)

	assert.Len(t, repo.saves, 3)
	assert.Zero(t, result.MTTRUpdated)
	assert.Zero(t, result.MTBFUpdated)
}

func TestRecalculate_DryRunWritesNothing(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	notifier := &mockNotifier{}
	r := NewRecalculator(RecalculatorConfig{}, repo, notifier)

	result, err := r.Recalculate(context.Background(), Options{DryRun: true, Force: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.MTTRUpdated)
	assert.Equal(t, 3, result.MTBFUpdated)
	assert.Empty(t, repo.saves)
	assert.Empty(t, notifier.results)
	assert.Nil(t, repo.get(1).MTTR)
}

func TestRecalculate_YearScope(t *testing.T) {
	previousYear := domain.Incident{ID: 10, IncidentDate: at("2024-12-30 10:00")}
	repo := newMockRepository(append(sampleIncidents(), previousYear)...)
	r := NewRecalculator(RecalculatorConfig{}, repo, nil)

	year := 2024
	result, err := r.Recalculate(context.Background(), Options{Year: &year})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, &year, result.Year)
	assert.Equal(t, intPtr(365), repo.get(10).MTBF)
	assert.Nil(t, repo.get(1).MTBF)
}

func TestRecalculate_SaveFailureStopsRun(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	repo.saveErrAt = 2
	notifier := &mockNotifier{}
	r := NewRecalculator(RecalculatorConfig{}, repo, notifier)

	result, err := r.Recalculate(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incident 2")

	require.NotNil(t, result)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.MTTRUpdated)
	assert.Equal(t, 1, result.MTBFUpdated)

	assert.NotNil(t, repo.get(1).MTTR, "earlier saves are kept")
	assert.Nil(t, repo.get(3).MTBF, "later incidents are not touched")
	assert.Empty(t, notifier.results)
}

func TestRecalculate_LoadFailure(t *testing.T) {
	repo := newMockRepository()
	repo.listErr = errors.New("connection refused")
	r := NewRecalculator(RecalculatorConfig{}, repo, nil)

	result, err := r.Recalculate(context.Background(), Options{})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrLoadIncidents)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRecalculate_MissingIncidentDate(t *testing.T) {
	repo := newMockRepository(domain.Incident{ID: 5})
	r := NewRecalculator(RecalculatorConfig{}, repo, nil)

	_, err := r.Recalculate(context.Background(), Options{})

	assert.ErrorIs(t, err, ErrMissingIncidentDate)
	assert.Contains(t, err.Error(), "incident 5")
	assert.Empty(t, repo.saves)
}

func TestRecalculate_RejectsConcurrentRun(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	r := NewRecalculator(RecalculatorConfig{}, repo, nil)

	var innerErr error
	repo.listHook = func() {
		repo.listHook = nil
		_, innerErr = r.Recalculate(context.Background(), Options{})
	}

	_, err := r.Recalculate(context.Background(), Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, innerErr, ErrRecalculationInProgress)

	_, err = r.Recalculate(context.Background(), Options{})
	assert.NoError(t, err, "guard is released after a run")
}

func TestRecalculate_NotifierErrorIsNotFatal(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	notifier := &mockNotifier{err: errors.New("webhook down")}
	r := NewRecalculator(RecalculatorConfig{}, repo, notifier)

	result, err := r.Recalculate(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
}

func TestRecalculate_Progress(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	r := NewRecalculator(RecalculatorConfig{}, repo, nil)

	var calls [][2]int
	_, err := r.Recalculate(context.Background(), Options{
		DryRun: true,
		Progress: func(done, total int) {
			calls = append(calls, [2]int{done, total})
		},
	})
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}

func TestRecalculate_CancelledWhileThrottled(t *testing.T) {
	repo := newMockRepository(sampleIncidents()...)
	r := NewRecalculator(RecalculatorConfig{WritesPerSecond: 0.001}, repo, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := r.Recalculate(ctx, Options{})

	require.Error(t, err)
	assert.Equal(t, 1, result.Processed, "first save uses the burst token")
}
