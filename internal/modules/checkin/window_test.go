package checkin

import (
	"errors"
	"testing"
	"time"
)

func TestIsTriggerWindowBoundaries(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	cfg := DefaultWindowConfig()
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"start", time.Date(2026, 10, 19, 9, 0, 0, 0, loc), true},
		{"just before", time.Date(2026, 10, 19, 8, 59, 59, 0, loc), false},
		{"last second", time.Date(2026, 10, 19, 9, 29, 59, 0, loc), true},
		{"end exclusive", time.Date(2026, 10, 19, 9, 30, 0, 0, loc), false},
		{"wrong weekday", time.Date(2026, 10, 20, 9, 10, 0, 0, loc), false},
		{"utc input", time.Date(2026, 10, 19, 13, 5, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		if got := IsTriggerWindow(tc.at, loc, cfg); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

// Walks a week of real instants minute by minute around each DST change and
// checks the window opens exactly once at 09:00 local for 30 minutes.
func TestIsTriggerWindowAcrossDST(t *testing.T) {
	cases := []struct {
		zone   string
		monday time.Time
	}{
		{"America/New_York", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"America/New_York", time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)},
		{"America/New_York", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)},
		{"Europe/London", time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC)},
		{"Europe/London", time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC)},
	}
	cfg := DefaultWindowConfig()
	for _, tc := range cases {
		loc := mustLoc(t, tc.zone)
		from := tc.monday.Add(-3 * 24 * time.Hour)
		to := tc.monday.Add(4 * 24 * time.Hour)

		rises, open := 0, 0
		var first time.Time
		prev := false
		for at := from; at.Before(to); at = at.Add(time.Minute) {
			cur := IsTriggerWindow(at, loc, cfg)
			if cur {
				open++
				if !prev {
					rises++
					first = at
				}
			}
			prev = cur
		}
		if rises != 1 {
			t.Fatalf("%s %s: want one open interval got=%d", tc.zone, tc.monday.Format("2006-01-02"), rises)
		}
		if open != 30 {
			t.Fatalf("%s %s: want 30 open minutes got=%d", tc.zone, tc.monday.Format("2006-01-02"), open)
		}
		local := first.In(loc)
		if local.Hour() != 9 || local.Minute() != 0 || local.Weekday() != time.Monday {
			t.Fatalf("%s: window opened at %s", tc.zone, local)
		}
		if got := WeekStart(first, loc, cfg.Weekday); got != tc.monday.Format(weekStartLayout) {
			t.Fatalf("%s: week start want=%s got=%s", tc.zone, tc.monday.Format(weekStartLayout), got)
		}
	}
}

func TestWeekStart(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"sunday night local", time.Date(2026, 10, 18, 23, 30, 0, 0, ny), "2026-10-12"},
		{"monday midnight local", time.Date(2026, 10, 19, 0, 0, 0, 0, ny), "2026-10-19"},
		{"utc monday is local sunday", time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC), "2026-10-12"},
		{"friday", time.Date(2026, 10, 16, 12, 0, 0, 0, ny), "2026-10-12"},
		{"across month", time.Date(2026, 11, 1, 12, 0, 0, 0, ny), "2026-10-26"},
	}
	for _, tc := range cases {
		if got := WeekStart(tc.at, ny, time.Monday); got != tc.want {
			t.Fatalf("%s: want=%s got=%s", tc.name, tc.want, got)
		}
	}
	if got := WeekStart(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC), time.UTC, time.Thursday); got != "2026-10-15" {
		t.Fatalf("thursday weekday: want=2026-10-15 got=%s", got)
	}
}

func TestWindowConfigValidate(t *testing.T) {
	if err := DefaultWindowConfig().Validate(); err != nil {
		t.Fatalf("default: %v", err)
	}
	bad := []WindowConfig{
		{Weekday: time.Monday, Hour: 3, Width: 30 * time.Minute},
		{Weekday: time.Monday, Hour: 24, Width: 30 * time.Minute},
		{Weekday: time.Monday, Hour: 9, Width: 0},
		{Weekday: time.Monday, Hour: 9, Width: 61 * time.Minute},
		{Weekday: time.Weekday(9), Hour: 9, Width: 30 * time.Minute},
	}
	for _, cfg := range bad {
		var cfgErr *ConfigError
		if err := cfg.Validate(); !errors.As(err, &cfgErr) {
			t.Fatalf("%+v: want ConfigError got=%v", cfg, err)
		}
	}
}

func TestLoadLocationRejectsUnknownZone(t *testing.T) {
	var cfgErr *ConfigError
	if _, err := LoadLocation("Mars/Olympus_Mons"); !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError got=%v", err)
	}
	if _, err := LoadLocation(""); !errors.As(err, &cfgErr) {
		t.Fatalf("empty: want ConfigError got=%v", err)
	}
}

func TestParseWeekday(t *testing.T) {
	for raw, want := range map[string]time.Weekday{"monday": time.Monday, "Sun": time.Sunday, "6": time.Saturday} {
		got, err := ParseWeekday(raw)
		if err != nil || got != want {
			t.Fatalf("%s: want=%v got=%v err=%v", raw, want, got, err)
		}
	}
	if _, err := ParseWeekday("someday"); err == nil {
		t.Fatalf("expected error for unknown weekday")
	}
}
