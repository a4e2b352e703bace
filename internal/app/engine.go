package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bissquit/incident-metrics/internal/config"
	"github.com/bissquit/incident-metrics/internal/incidents"
	incidentspostgres "github.com/bissquit/incident-metrics/internal/incidents/postgres"
	"github.com/bissquit/incident-metrics/internal/notifications"
	"github.com/bissquit/incident-metrics/internal/notifications/email"
	"github.com/bissquit/incident-metrics/internal/notifications/mattermost"
	"github.com/bissquit/incident-metrics/internal/pkg/postgres"
	"github.com/bissquit/incident-metrics/internal/reliability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Engine wires storage to the incident service and the metrics engine. It is
// shared by the HTTP server and the one-shot CLI commands.
type Engine struct {
	DB           *pgxpool.Pool
	Incidents    *incidents.Service
	Recalculator *reliability.Recalculator
	Reporter     *reliability.WeeklyReporter
}

// NewEngine connects to the database and builds the services.
func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()

	loc := cfg.Location()
	sessionTZ := loc.String()
	if loc == time.Local {
		sessionTZ = ""
	}

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
		Timezone:        sessionTZ,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	repo := incidentspostgres.NewRepository(db, loc)

	dispatcher, err := newDispatcher(cfg.Notifications)
	if err != nil {
		db.Close()
		return nil, err
	}

	var notifier reliability.RunNotifier
	if dispatcher.Len() > 0 {
		notifier = dispatcher
	}
	slog.Info("recalculation configured",
		"timezone", loc.String(),
		"writes_per_second", cfg.Recalculation.WritesPerSecond,
		"notification_channels", dispatcher.Len(),
	)

	return &Engine{
		DB:        db,
		Incidents: incidents.NewService(repo),
		Recalculator: reliability.NewRecalculator(reliability.RecalculatorConfig{
			WritesPerSecond: cfg.Recalculation.WritesPerSecond,
		}, repo, notifier),
		Reporter: reliability.NewWeeklyReporter(repo, loc),
	}, nil
}

func newDispatcher(cfg config.NotificationsConfig) (*notifications.Dispatcher, error) {
	var senders []notifications.Sender

	if mm := cfg.Mattermost; mm.WebhookURL != "" {
		senders = append(senders, mattermost.NewSender(mattermost.Config{
			WebhookURL: mm.WebhookURL,
			Username:   mm.Username,
			IconURL:    mm.IconURL,
			Timeout:    mm.Timeout,
		}))
	}

	if e := cfg.Email; e.SMTPHost != "" {
		renderer, err := notifications.NewRenderer()
		if err != nil {
			return nil, err
		}
		sender, err := email.NewSender(email.Config{
			SMTPHost:     e.SMTPHost,
			SMTPPort:     e.SMTPPort,
			SMTPUser:     e.SMTPUser,
			SMTPPassword: e.SMTPPassword,
			FromAddress:  e.FromAddress,
			Recipients:   e.Recipients,
			DialTimeout:  e.DialTimeout,
		}, renderer)
		if err != nil {
			return nil, fmt.Errorf("create email sender: %w", err)
		}
		senders = append(senders, sender)
	}

	return notifications.NewDispatcher(senders...), nil
}

// Ping checks database connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return e.DB.Ping(ctx)
}

// Close releases the connection pool.
func (e *Engine) Close() {
	e.DB.Close()
}
