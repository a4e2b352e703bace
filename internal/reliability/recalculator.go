package reliability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
	"github.com/bissquit/incident-metrics/internal/pkg/ctxlog"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Options controls a recalculation run.
type Options struct {
	Year   *int
	DryRun bool
	// Force re-saves every incident, including unchanged ones.
	Force bool
	// Progress, if set, is called after each incident is processed.
	Progress func(done, total int)
}

// Change describes a metric change for one incident.
type Change struct {
	IncidentID int64        `json:"incident_id"`
	OldMTTR    *domain.MTTR `json:"old_mttr"`
	NewMTTR    *domain.MTTR `json:"new_mttr"`
	OldMTBF    *int         `json:"old_mtbf"`
	NewMTBF    *int         `json:"new_mtbf"`
}

// MTTRChanged reports whether the MTTR differs.
func (c Change) MTTRChanged() bool {
	return !domain.EqualMTTR(c.OldMTTR, c.NewMTTR)
}

// MTBFChanged reports whether the MTBF differs.
func (c Change) MTBFChanged() bool {
	return !equalInt(c.OldMTBF, c.NewMTBF)
}

// Result summarizes a recalculation run.
type Result struct {
	RunID       uuid.UUID     `json:"run_id"`
	Year        *int          `json:"year"`
	DryRun      bool          `json:"dry_run"`
	Processed   int           `json:"processed"`
	MTTRUpdated int           `json:"mttr_updated"`
	MTBFUpdated int           `json:"mtbf_updated"`
	Changes     []Change      `json:"changes"`
	Duration    time.Duration `json:"duration_ns"`
}

// RecalculatorConfig contains recalculator configuration.
type RecalculatorConfig struct {
	// WritesPerSecond throttles metric saves. Zero means unlimited.
	WritesPerSecond float64
}

// Recalculator recomputes MTTR and MTBF for stored incidents.
//
// Only one run may be active per process. Running two recalculators against the
// same database at once is not supported.
type Recalculator struct {
	repo     Repository
	notifier RunNotifier
	limiter  *rate.Limiter
	running  atomic.Bool
}

// NewRecalculator creates a new recalculator. notifier may be nil.
func NewRecalculator(config RecalculatorConfig, repo Repository, notifier RunNotifier) *Recalculator {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.WritesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.WritesPerSecond), 1)
	}

	return &Recalculator{
		repo:     repo,
		notifier: notifier,
		limiter:  limiter,
	}
}

// Recalculate walks all incidents (or one year) in (incident_date, id) order and
// refreshes their MTTR and MTBF. A failed save stops the run; earlier saves stay.
func (r *Recalculator) Recalculate(ctx context.Context, opts Options) (*Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRecalculationInProgress
	}
	defer r.running.Store(false)

	start := time.Now()
	result := &Result{
		RunID:   uuid.New(),
		Year:    opts.Year,
		DryRun:  opts.DryRun,
		Changes: make([]Change, 0),
	}

	logger := ctxlog.FromContext(ctx).With("run_id", result.RunID, "dry_run", opts.DryRun)
	if opts.Year != nil {
		logger = logger.With("year", *opts.Year)
	}

	incidents, err := r.repo.ListIncidents(ctx, IncidentFilter{Year: opts.Year})
	if err != nil {
		recordRun("load_failed", time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrLoadIncidents, err)
	}
	SortIncidents(incidents)

	logger.Info("recalculating incident metrics", "incidents", len(incidents))

	if err := r.walk(ctx, incidents, opts, result); err != nil {
		result.Duration = time.Since(start)
		recordRun("failed", result.Duration)
		logger.Error("recalculation stopped",
			"processed", result.Processed,
			"mttr_updated", result.MTTRUpdated,
			"mtbf_updated", result.MTBFUpdated,
			"error", err,
		)
		return result, err
	}

	result.Duration = time.Since(start)
	if opts.DryRun {
		recordRun("dry_run", result.Duration)
	} else {
		recordRun("success", result.Duration)
		recordUpdates(result.MTTRUpdated, result.MTBFUpdated)
	}

	logger.Info("recalculation finished",
		"processed", result.Processed,
		"mttr_updated", result.MTTRUpdated,
		"mtbf_updated", result.MTBFUpdated,
		"duration", result.Duration,
	)

	if !opts.DryRun && r.notifier != nil {
		if err := r.notifier.NotifyRecalculation(ctx, result); err != nil {
			logger.Warn("failed to notify about recalculation", "error", err)
		}
	}

	return result, nil
}

func (r *Recalculator) walk(ctx context.Context, incidents []domain.Incident, opts Options, result *Result) error {
	var previous *domain.Incident

	for i := range incidents {
		incident := &incidents[i]
		if incident.IncidentDate.IsZero() {
			return fmt.Errorf("incident %d: %w", incident.ID, ErrMissingIncidentDate)
		}

		mttr := ComputeMTTR(*incident)
		mtbf := ComputeMTBF(previous, *incident)
		previous = incident

		change := Change{
			IncidentID: incident.ID,
			OldMTTR:    incident.MTTR,
			NewMTTR:    mttr,
			OldMTBF:    incident.MTBF,
			NewMTBF:    &mtbf,
		}
		mttrChanged := change.MTTRChanged()
		mtbfChanged := change.MTBFChanged()

		if !opts.DryRun && (mttrChanged || mtbfChanged || opts.Force) {
			if err := r.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("throttle save for incident %d: %w", incident.ID, err)
			}
			if err := r.repo.SaveMetrics(ctx, incident.ID, mttr, &mtbf, SaveOptions{}); err != nil {
				return fmt.Errorf("save metrics for incident %d: %w", incident.ID, err)
			}
			incident.MTTR = mttr
			incident.MTBF = &mtbf
		}

		if mttrChanged {
			result.MTTRUpdated++
		}
		if mtbfChanged {
			result.MTBFUpdated++
		}
		if mttrChanged || mtbfChanged {
			result.Changes = append(result.Changes, change)
		}

		result.Processed++
		if opts.Progress != nil {
			opts.Progress(result.Processed, len(incidents))
		}
	}

	return nil
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
