package checkin

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const weekStartLayout = "2006-01-02"

type WindowConfig struct {
	Weekday time.Weekday
	Hour    int
	Width   time.Duration
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{Weekday: time.Monday, Hour: 9, Width: 30 * time.Minute}
}

// Validate rejects windows that could overlap a DST transition. Every zone
// in the tz database shifts its clocks before 04:00 local, so the window must
// start at or after 04:00 and end by midnight.
func (c WindowConfig) Validate() error {
	if c.Weekday < time.Sunday || c.Weekday > time.Saturday {
		return &ConfigError{Field: "TRIGGER_WEEKDAY", Err: fmt.Errorf("invalid weekday %d", c.Weekday)}
	}
	if c.Hour < 4 || c.Hour > 23 {
		return &ConfigError{Field: "TRIGGER_HOUR", Err: fmt.Errorf("hour %d outside 4..23", c.Hour)}
	}
	if c.Width <= 0 || c.Width > time.Hour {
		return &ConfigError{Field: "WINDOW_MINUTES", Err: fmt.Errorf("width %s outside (0, 1h]", c.Width)}
	}
	if time.Duration(c.Hour)*time.Hour+c.Width > 24*time.Hour {
		return &ConfigError{Field: "WINDOW_MINUTES", Err: errors.New("window crosses midnight")}
	}
	return nil
}

// IsTriggerWindow reports whether now, read as wall-clock time in loc, falls
// on the trigger weekday inside [Hour:00, Hour:00+Width).
func IsTriggerWindow(now time.Time, loc *time.Location, cfg WindowConfig) bool {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	if local.Weekday() != cfg.Weekday {
		return false
	}
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	start := time.Duration(cfg.Hour) * time.Hour
	return sinceMidnight >= start && sinceMidnight < start+cfg.Width
}

// WeekStartTime is local midnight of the most recent trigger weekday at or
// before now.
func WeekStartTime(now time.Time, loc *time.Location, weekday time.Weekday) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	back := (int(local.Weekday()) - int(weekday) + 7) % 7
	return time.Date(local.Year(), local.Month(), local.Day()-back, 0, 0, 0, 0, loc)
}

// WeekStart is the ledger dedupe key: the WeekStartTime date as YYYY-MM-DD.
func WeekStart(now time.Time, loc *time.Location, weekday time.Weekday) string {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	back := (int(local.Weekday()) - int(weekday) + 7) % 7
	// Format from calendar fields so a zone without a local midnight on that
	// day still yields the right date.
	y, m, d := local.Date()
	return time.Date(y, m, d-back, 12, 0, 0, 0, time.UTC).Format(weekStartLayout)
}

func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ConfigError{Field: "SCHEDULER_TIMEZONE", Err: errors.New("empty timezone")}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &ConfigError{Field: "SCHEDULER_TIMEZONE", Err: err}
	}
	return loc, nil
}

func ParseWeekday(raw string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sun", "sunday", "0":
		return time.Sunday, nil
	case "mon", "monday", "1":
		return time.Monday, nil
	case "tue", "tues", "tuesday", "2":
		return time.Tuesday, nil
	case "wed", "wednesday", "3":
		return time.Wednesday, nil
	case "thu", "thur", "thurs", "thursday", "4":
		return time.Thursday, nil
	case "fri", "friday", "5":
		return time.Friday, nil
	case "sat", "saturday", "6":
		return time.Saturday, nil
	default:
		return time.Sunday, &ConfigError{Field: "TRIGGER_WEEKDAY", Err: fmt.Errorf("unknown weekday %q", raw)}
	}
}
