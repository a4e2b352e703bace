// Package postgres provides PostgreSQL implementation of the incidents and
// reliability repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
	"github.com/bissquit/incident-metrics/internal/incidents"
	"github.com/bissquit/incident-metrics/internal/reliability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the LISTEN/NOTIFY channel used for non-quiet metric saves.
const NotifyChannel = "incident_updated"

const incidentColumns = `
	id, title, incident_date, stop_bleeding_at, fund_status, severity,
	incident_status, classification, mttr, mtbf, created_at, updated_at
`

// querier is implemented by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements incidents.Repository and reliability.Repository.
type Repository struct {
	db       *pgxpool.Pool
	location *time.Location
}

var (
	_ incidents.Repository   = (*Repository)(nil)
	_ reliability.Repository = (*Repository)(nil)
)

// NewRepository creates a new PostgreSQL repository. Loaded timestamps are
// converted to loc, which also defines calendar years for filtering; nil means UTC.
func NewRepository(db *pgxpool.Pool, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{db: db, location: loc}
}

// CreateIncident inserts a new incident.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (
			title, incident_date, stop_bleeding_at, fund_status, severity,
			incident_status, classification
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		incident.Title,
		incident.IncidentDate,
		incident.StopBleedingAt,
		incident.FundStatus,
		incident.Severity,
		incident.Status,
		incident.Classification,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetIncident retrieves an incident by ID.
func (r *Repository) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	incident, err := r.scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &incident, nil
}

// ListIncidentPage retrieves a page of incidents, newest first, and the total count.
func (r *Repository) ListIncidentPage(ctx context.Context, filter incidents.ListFilter) ([]domain.Incident, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if filter.Year != nil {
		from, to := r.yearRange(*filter.Year)
		where += fmt.Sprintf(" AND incident_date >= $%d AND incident_date < $%d", argNum, argNum+1)
		args = append(args, from, to)
		argNum += 2
	}
	if filter.Classification != nil {
		where += fmt.Sprintf(" AND classification = $%d", argNum)
		args = append(args, *filter.Classification)
		argNum++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND incident_status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM incidents"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}

	query := "SELECT " + incidentColumns + " FROM incidents" + where +
		" ORDER BY incident_date DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}

	list, err := r.queryIncidents(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}
	return list, total, nil
}

// UpdateIncident updates the intake fields of an incident. Metrics are not touched.
func (r *Repository) UpdateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET title = $2, incident_date = $3, stop_bleeding_at = $4, fund_status = $5,
		    severity = $6, incident_status = $7, classification = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		incident.ID,
		incident.Title,
		incident.IncidentDate,
		incident.StopBleedingAt,
		incident.FundStatus,
		incident.Severity,
		incident.Status,
		incident.Classification,
	).Scan(&incident.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incidents.ErrIncidentNotFound
		}
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// ListIncidents returns incidents ordered by (incident_date, id), optionally
// restricted to one calendar year.
func (r *Repository) ListIncidents(ctx context.Context, filter reliability.IncidentFilter) ([]domain.Incident, error) {
	query := "SELECT " + incidentColumns + " FROM incidents"
	var args []any

	if filter.Year != nil {
		from, to := r.yearRange(*filter.Year)
		query += " WHERE incident_date >= $1 AND incident_date < $2"
		args = append(args, from, to)
	}
	query += " ORDER BY incident_date ASC, id ASC"

	list, err := r.queryIncidents(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents for metrics: %w", err)
	}
	return list, nil
}

// ListWeeklyCandidates returns incidents classified as Incident whose fund status
// is not Potential recovery, with incident_date in [from, to).
func (r *Repository) ListWeeklyCandidates(ctx context.Context, from, to time.Time) ([]domain.Incident, error) {
	query := "SELECT " + incidentColumns + ` FROM incidents
		WHERE classification = $1
		  AND incident_date >= $2 AND incident_date < $3
		  AND (fund_status IS NULL OR fund_status <> $4)
		ORDER BY incident_date ASC, id ASC`

	list, err := r.queryIncidents(ctx, query,
		domain.ClassificationIncident,
		from,
		to,
		domain.FundStatusPotentialRecovery,
	)
	if err != nil {
		return nil, fmt.Errorf("list weekly candidates: %w", err)
	}
	return list, nil
}

// SaveMetrics stores mttr and mtbf for one incident. updated_at is left alone so
// a quiet save is invisible to change tracking. Audit and Notify add an audit row
// and a NOTIFY in the same transaction.
func (r *Repository) SaveMetrics(ctx context.Context, incidentID int64, mttr *domain.MTTR, mtbf *int, opts reliability.SaveOptions) error {
	var signed *int64
	if mttr != nil {
		v := mttr.Signed()
		signed = &v
	}

	if !opts.Audit && !opts.Notify {
		return r.updateMetrics(ctx, r.db, incidentID, signed, mtbf, nil, nil)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	var oldMTTR *int64
	var oldMTBF *int
	if err := r.updateMetrics(ctx, tx, incidentID, signed, mtbf, &oldMTTR, &oldMTBF); err != nil {
		return err
	}

	if opts.Audit {
		_, err := tx.Exec(ctx, `
			INSERT INTO incident_metric_changes (incident_id, old_mttr, new_mttr, old_mtbf, new_mtbf)
			VALUES ($1, $2, $3, $4, $5)
		`, incidentID, oldMTTR, signed, oldMTBF, mtbf)
		if err != nil {
			return fmt.Errorf("record metric change: %w", err)
		}
	}

	if opts.Notify {
		if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", NotifyChannel, strconv.FormatInt(incidentID, 10)); err != nil {
			return fmt.Errorf("notify incident update: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// updateMetrics writes the new values and, when old pointers are given, returns
// the previous ones.
func (r *Repository) updateMetrics(ctx context.Context, q querier, id int64, mttr *int64, mtbf *int, oldMTTR **int64, oldMTBF **int) error {
	query := `
		WITH prev AS (SELECT id, mttr, mtbf FROM incidents WHERE id = $1 FOR UPDATE)
		UPDATE incidents i
		SET mttr = $2, mtbf = $3
		FROM prev
		WHERE i.id = prev.id
		RETURNING prev.mttr, prev.mtbf
	`
	var prevMTTR *int64
	var prevMTBF *int
	err := q.QueryRow(ctx, query, id, mttr, mtbf).Scan(&prevMTTR, &prevMTBF)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incidents.ErrIncidentNotFound
		}
		return fmt.Errorf("update metrics: %w", err)
	}

	if oldMTTR != nil {
		*oldMTTR = prevMTTR
	}
	if oldMTBF != nil {
		*oldMTBF = prevMTBF
	}
	return nil
}

func (r *Repository) queryIncidents(ctx context.Context, query string, args ...any) ([]domain.Incident, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]domain.Incident, 0)
	for rows.Next() {
		incident, err := r.scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		list = append(list, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *Repository) scanIncident(row pgx.Row) (domain.Incident, error) {
	var incident domain.Incident
	var mttr *int64

	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.IncidentDate,
		&incident.StopBleedingAt,
		&incident.FundStatus,
		&incident.Severity,
		&incident.Status,
		&incident.Classification,
		&mttr,
		&incident.MTBF,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return incident, err
	}

	incident.IncidentDate = incident.IncidentDate.In(r.location)
	if incident.StopBleedingAt != nil {
		stop := incident.StopBleedingAt.In(r.location)
		incident.StopBleedingAt = &stop
	}
	if mttr != nil {
		v := domain.MTTRFromSigned(*mttr)
		incident.MTTR = &v
	}
	return incident, nil
}

// yearRange returns [Jan 1 of year, Jan 1 of year+1) in the repository location.
func (r *Repository) yearRange(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, r.location)
	return from, from.AddDate(1, 0, 0)
}
