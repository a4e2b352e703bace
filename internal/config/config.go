// Package config loads service configuration from defaults, a YAML file and
// environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. Nested keys are separated by
// a double underscore: INCIDENT_METRICS_DATABASE__URL sets database.url.
const EnvPrefix = "INCIDENT_METRICS_"

// Config is the root configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	CORS          CORSConfig          `koanf:"cors"`
	Recalculation RecalculationConfig `koanf:"recalculation"`
	Reports       ReportsConfig       `koanf:"reports"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

// ServerConfig configures the HTTP servers.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or text
}

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// RecalculationConfig configures the MTTR/MTBF batch job.
type RecalculationConfig struct {
	// WritesPerSecond throttles metric saves, 0 disables throttling.
	WritesPerSecond float64 `koanf:"writes_per_second"`
}

// ReportsConfig configures weekly reporting.
type ReportsConfig struct {
	// Timezone is an IANA name used for calendar days and week boundaries.
	Timezone string `koanf:"timezone"`
}

// NotificationsConfig configures run summaries.
type NotificationsConfig struct {
	Mattermost MattermostConfig `koanf:"mattermost"`
	Email      EmailConfig      `koanf:"email"`
}

// MattermostConfig configures the incoming webhook for recalculation summaries.
// An empty WebhookURL disables it.
type MattermostConfig struct {
	WebhookURL string        `koanf:"webhook_url"`
	Username   string        `koanf:"username"`
	IconURL    string        `koanf:"icon_url"`
	Timeout    time.Duration `koanf:"timeout"`
}

// EmailConfig configures SMTP delivery of recalculation summaries.
// An empty SMTPHost disables it.
type EmailConfig struct {
	SMTPHost     string        `koanf:"smtp_host"`
	SMTPPort     int           `koanf:"smtp_port"`
	SMTPUser     string        `koanf:"smtp_user"`
	SMTPPassword string        `koanf:"smtp_password"`
	FromAddress  string        `koanf:"from_address"`
	Recipients   []string      `koanf:"recipients"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
}

// Default returns configuration defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			MaxBodyBytes:      1 << 20,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			MigrationsPath:  "migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Reports: ReportsConfig{
			Timezone: "UTC",
		},
		Notifications: NotificationsConfig{
			Mattermost: MattermostConfig{
				Username: "Incident Metrics",
				Timeout:  10 * time.Second,
			},
			Email: EmailConfig{
				SMTPPort:    587,
				DialTimeout: 10 * time.Second,
			},
		},
	}
}

// Load reads configuration. path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps INCIDENT_METRICS_DATABASE__MAX_OPEN_CONNS to database.max_open_conns.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.Recalculation.WritesPerSecond < 0 {
		errs = append(errs, errors.New("recalculation.writes_per_second must not be negative"))
	}
	if e := c.Notifications.Email; e.SMTPHost != "" {
		if e.FromAddress == "" {
			errs = append(errs, errors.New("notifications.email.from_address is required when smtp_host is set"))
		}
		if len(e.Recipients) == 0 {
			errs = append(errs, errors.New("notifications.email.recipients is required when smtp_host is set"))
		}
	}
	if _, err := time.LoadLocation(c.Reports.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("reports.timezone: %w", err))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the configured reporting time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reports.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
