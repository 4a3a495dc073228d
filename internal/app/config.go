package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/yungbote/checkin-engine/internal/db"
	"github.com/yungbote/checkin-engine/internal/modules/checkin"
	"github.com/yungbote/checkin-engine/internal/observability"
)

const envPrefix = "CHECKIN"

// Config is read from CHECKIN_<NAME>, falling back to the bare <NAME>.
type Config struct {
	LogMode     string `envconfig:"LOG_MODE" default:"development"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"checkin-engine"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Version     string `envconfig:"VERSION" default:"dev"`

	OtelEnabled     bool    `envconfig:"OTEL_ENABLED" default:"false"`
	OtelEndpoint    string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     string  `envconfig:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelInsecure    bool    `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`
	OtelSampleRatio float64 `envconfig:"OTEL_SAMPLER_RATIO" default:"0.1"`

	SchedulerTimezone string        `envconfig:"SCHEDULER_TIMEZONE" default:"America/New_York"`
	TriggerWeekday    string        `envconfig:"TRIGGER_WEEKDAY" default:"monday"`
	TriggerHour       int           `envconfig:"TRIGGER_HOUR" default:"9"`
	WindowMinutes     int           `envconfig:"WINDOW_MINUTES" default:"30"`
	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"15m"`
	SchedulerEnabled  bool          `envconfig:"SCHEDULER_ENABLED" default:"true"`
	Workers           int           `envconfig:"WORKERS" default:"4"`
	ChatHistoryLimit  int           `envconfig:"CHAT_HISTORY_LIMIT" default:"20"`
	LeaseTTL          time.Duration `envconfig:"LEASE_TTL" default:"5m"`

	StageTimeoutRoster    time.Duration `envconfig:"STAGE_TIMEOUT_ROSTER"`
	StageTimeoutAggregate time.Duration `envconfig:"STAGE_TIMEOUT_AGGREGATE"`
	StageTimeoutGenerate  time.Duration `envconfig:"STAGE_TIMEOUT_GENERATE"`
	StageTimeoutFilter    time.Duration `envconfig:"STAGE_TIMEOUT_FILTER"`
	StageTimeoutRender    time.Duration `envconfig:"STAGE_TIMEOUT_RENDER"`
	StageTimeoutRecord    time.Duration `envconfig:"STAGE_TIMEOUT_RECORD"`
	StageTimeoutBroadcast time.Duration `envconfig:"STAGE_TIMEOUT_BROADCAST"`

	DBDriver         string `envconfig:"DB_DRIVER" default:"postgres"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD"`
	PostgresName     string `envconfig:"POSTGRES_NAME" default:"checkins"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"checkins.db"`
	DBMaxOpenConns   int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	DBVerbose        bool   `envconfig:"DB_VERBOSE" default:"false"`

	HTTPAddr       string        `envconfig:"HTTP_ADDR" default:":8080"`
	CORSOrigins    []string      `envconfig:"CORS_ORIGINS"`
	JWTSecretKey   string        `envconfig:"JWT_SECRET_KEY"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"1h"`

	FilterRulesPath       string `envconfig:"FILTER_RULES_PATH"`
	ArtifactDir           string `envconfig:"ARTIFACT_DIR" default:"artifacts"`
	ArtifactPublicBaseURL string `envconfig:"ARTIFACT_PUBLIC_BASE_URL"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, &checkin.ConfigError{Field: "env", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	w, err := c.Window()
	if err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return &checkin.ConfigError{Field: "POLL_INTERVAL", Err: fmt.Errorf("must be positive, got %s", c.PollInterval)}
	}
	// A poll interval wider than the window could step over it entirely.
	if c.PollInterval > w.Width {
		return &checkin.ConfigError{Field: "POLL_INTERVAL", Err: fmt.Errorf("%s exceeds window width %s", c.PollInterval, w.Width)}
	}
	if c.OtelSampleRatio < 0 || c.OtelSampleRatio > 1 {
		return &checkin.ConfigError{Field: "OTEL_SAMPLER_RATIO", Err: fmt.Errorf("must be within [0,1], got %v", c.OtelSampleRatio)}
	}
	if c.Workers <= 0 {
		return &checkin.ConfigError{Field: "WORKERS", Err: fmt.Errorf("must be positive, got %d", c.Workers)}
	}
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return &checkin.ConfigError{Field: "JWT_SECRET_KEY", Err: errors.New("required")}
	}
	switch strings.ToLower(strings.TrimSpace(c.DBDriver)) {
	case "postgres", "sqlite":
	default:
		return &checkin.ConfigError{Field: "DB_DRIVER", Err: fmt.Errorf("unsupported driver %q", c.DBDriver)}
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	return checkin.LoadLocation(c.SchedulerTimezone)
}

func (c Config) Window() (checkin.WindowConfig, error) {
	wd, err := checkin.ParseWeekday(c.TriggerWeekday)
	if err != nil {
		return checkin.WindowConfig{}, err
	}
	w := checkin.WindowConfig{
		Weekday: wd,
		Hour:    c.TriggerHour,
		Width:   time.Duration(c.WindowMinutes) * time.Minute,
	}
	if err := w.Validate(); err != nil {
		return checkin.WindowConfig{}, err
	}
	return w, nil
}

func (c Config) OtelConfig() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:           c.OtelEnabled,
		ServiceName:       c.ServiceName,
		Environment:       c.Environment,
		Version:           c.Version,
		Endpoint:          c.OtelEndpoint,
		Headers:           c.OtelHeaders,
		Insecure:          c.OtelInsecure,
		SampleRatio:       c.OtelSampleRatio,
		SchedulerTimezone: c.SchedulerTimezone,
		TriggerWeekday:    c.TriggerWeekday,
	}
}

// StageTimeouts overlays any configured timeouts on the defaults.
func (c Config) StageTimeouts() checkin.StageTimeouts {
	t := checkin.DefaultStageTimeouts()
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&t.Roster, c.StageTimeoutRoster)
	set(&t.Aggregate, c.StageTimeoutAggregate)
	set(&t.Generate, c.StageTimeoutGenerate)
	set(&t.Filter, c.StageTimeoutFilter)
	set(&t.Render, c.StageTimeoutRender)
	set(&t.Record, c.StageTimeoutRecord)
	set(&t.Broadcast, c.StageTimeoutBroadcast)
	return t
}

func (c Config) DBConfig() db.Config {
	return db.Config{
		Driver:           strings.ToLower(strings.TrimSpace(c.DBDriver)),
		PostgresHost:     c.PostgresHost,
		PostgresPort:     c.PostgresPort,
		PostgresUser:     c.PostgresUser,
		PostgresPassword: c.PostgresPassword,
		PostgresName:     c.PostgresName,
		PostgresSSLMode:  c.PostgresSSLMode,
		SQLitePath:       c.SQLitePath,
		MaxOpenConns:     c.DBMaxOpenConns,
		Verbose:          c.DBVerbose,
	}
}
