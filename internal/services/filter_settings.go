package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/checkin-engine/internal/data/repos"
	"github.com/yungbote/checkin-engine/internal/modules/checkin"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

// FilterSettingsService resolves a coach's filter rules. Coaches without a
// settings row, or with an empty rule list, get the deployment defaults.
type FilterSettingsService struct {
	log      *logger.Logger
	repo     repos.CoachSettingsRepo
	defaults checkin.FilterConfig
}

func NewFilterSettingsService(baseLog *logger.Logger, repo repos.CoachSettingsRepo, defaults checkin.FilterConfig) *FilterSettingsService {
	if defaults.IsZero() {
		defaults = checkin.DefaultFilterConfig()
	}
	return &FilterSettingsService{
		log:      baseLog.With("service", "FilterSettingsService"),
		repo:     repo,
		defaults: defaults,
	}
}

// LoadDefaultFilterConfig reads path when set and falls back to the built-in
// rules otherwise.
func LoadDefaultFilterConfig(path string) (checkin.FilterConfig, error) {
	if path == "" {
		return checkin.DefaultFilterConfig(), nil
	}
	cfg, err := checkin.LoadFilterConfigYAML(path)
	if err != nil {
		return checkin.FilterConfig{}, &checkin.ConfigError{Field: "filter_rules_path", Err: err}
	}
	return cfg, nil
}

func (s *FilterSettingsService) Defaults() checkin.FilterConfig { return s.defaults }

func (s *FilterSettingsService) FilterConfig(ctx context.Context, coachID uuid.UUID) (checkin.FilterConfig, error) {
	row, err := s.repo.GetByCoachID(dbctx.Context{Ctx: ctx}, coachID)
	if err != nil {
		return checkin.FilterConfig{}, fmt.Errorf("load coach settings: %w", err)
	}
	if row == nil || len(row.FilterRules) == 0 {
		return s.defaults, nil
	}
	cfg, err := checkin.ParseFilterRulesJSON(row.FilterRules)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		s.log.Warn("Invalid coach filter rules; using defaults", "coach_id", coachID.String(), "error", err)
		return s.defaults, nil
	}
	if cfg.IsZero() {
		return s.defaults, nil
	}
	return cfg, nil
}
