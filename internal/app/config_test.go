package app

import (
	"errors"
	"testing"
	"time"

	"github.com/yungbote/checkin-engine/internal/modules/checkin"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHECKIN_JWT_SECRET_KEY", "test-secret")
	t.Setenv("CHECKIN_DB_DRIVER", "sqlite")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	w, err := cfg.Window()
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if w.Weekday != time.Monday || w.Hour != 9 || w.Width != 30*time.Minute {
		t.Fatalf("window: %+v", w)
	}
	if cfg.PollInterval != 15*time.Minute || cfg.Workers != 4 {
		t.Fatalf("scheduler: poll=%s workers=%d", cfg.PollInterval, cfg.Workers)
	}
	if got := cfg.StageTimeouts(); got != checkin.DefaultStageTimeouts() {
		t.Fatalf("stage timeouts: want defaults got=%+v", got)
	}
}

func TestLoadConfigUnprefixedFallback(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TRIGGER_WEEKDAY", "sunday")
	t.Setenv("CHECKIN_TRIGGER_HOUR", "18")
	t.Setenv("CHECKIN_STAGE_TIMEOUT_GENERATE", "2m")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	w, _ := cfg.Window()
	if w.Weekday != time.Sunday || w.Hour != 18 {
		t.Fatalf("window: %+v", w)
	}
	if got := cfg.StageTimeouts().Generate; got != 2*time.Minute {
		t.Fatalf("generate timeout: want=2m got=%s", got)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"bad zone", "CHECKIN_SCHEDULER_TIMEZONE", "Mars/Olympus", "SCHEDULER_TIMEZONE"},
		{"bad weekday", "CHECKIN_TRIGGER_WEEKDAY", "someday", "TRIGGER_WEEKDAY"},
		{"hour in DST band", "CHECKIN_TRIGGER_HOUR", "2", "TRIGGER_HOUR"},
		{"poll wider than window", "CHECKIN_POLL_INTERVAL", "45m", "POLL_INTERVAL"},
		{"no workers", "CHECKIN_WORKERS", "0", "WORKERS"},
		{"unknown driver", "CHECKIN_DB_DRIVER", "mysql", "DB_DRIVER"},
		{"missing secret", "CHECKIN_JWT_SECRET_KEY", "", "JWT_SECRET_KEY"},
		{"sample ratio above one", "CHECKIN_OTEL_SAMPLER_RATIO", "1.5", "OTEL_SAMPLER_RATIO"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := LoadConfig()
			var ce *checkin.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("want ConfigError got=%v", err)
			}
			if ce.Field != tc.field {
				t.Fatalf("field: want=%s got=%s", tc.field, ce.Field)
			}
		})
	}
}

func TestOtelConfigCarriesSchedulerSettings(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CHECKIN_OTEL_ENABLED", "true")
	t.Setenv("CHECKIN_OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	oc := cfg.OtelConfig()
	if !oc.Enabled || oc.Endpoint != "collector:4318" {
		t.Fatalf("otel: want enabled with endpoint got=%+v", oc)
	}
	if oc.SampleRatio != 0.1 || oc.SchedulerTimezone != cfg.SchedulerTimezone || oc.TriggerWeekday != cfg.TriggerWeekday {
		t.Fatalf("otel settings: got=%+v", oc)
	}
}
