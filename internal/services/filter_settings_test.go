package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/checkin-engine/internal/data/repos"
	"github.com/yungbote/checkin-engine/internal/data/repos/testutil"
	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/modules/checkin"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
)

func TestFilterSettingsServiceResolution(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewCoachSettingsRepo(db, log)
	ctx := context.Background()

	defaults := checkin.FilterConfig{Rules: []checkin.FilterRule{{Kind: checkin.RuleCollapseWhitespace}}}
	svc := NewFilterSettingsService(log, repo, defaults)

	withRules := uuid.New()
	if err := repo.Upsert(dbctx.Context{Ctx: ctx}, &types.CoachSettings{
		CoachID:     withRules,
		FilterRules: datatypes.JSON(`[{"kind":"redact_phrase","pattern":"cheat day"}]`),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	broken := uuid.New()
	if err := repo.Upsert(dbctx.Context{Ctx: ctx}, &types.CoachSettings{
		CoachID:     broken,
		FilterRules: datatypes.JSON(`[{"kind":"regex_replace","pattern":"("}]`),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := svc.FilterConfig(ctx, withRules)
	if err != nil {
		t.Fatalf("FilterConfig: %v", err)
	}
	if len(got.Rules) != 1 || got.Rules[0].Kind != checkin.RuleRedactPhrase {
		t.Fatalf("coach rules: got=%+v", got)
	}

	got, err = svc.FilterConfig(ctx, uuid.New())
	if err != nil {
		t.Fatalf("FilterConfig (no row): %v", err)
	}
	if len(got.Rules) != 1 || got.Rules[0].Kind != checkin.RuleCollapseWhitespace {
		t.Fatalf("defaults for missing row: got=%+v", got)
	}

	got, err = svc.FilterConfig(ctx, broken)
	if err != nil {
		t.Fatalf("FilterConfig (broken row): %v", err)
	}
	if got.Rules[0].Kind != checkin.RuleCollapseWhitespace {
		t.Fatalf("defaults for invalid row: got=%+v", got)
	}
}

func TestLoadDefaultFilterConfig(t *testing.T) {
	cfg, err := LoadDefaultFilterConfig("")
	if err != nil {
		t.Fatalf("LoadDefaultFilterConfig(empty): %v", err)
	}
	if len(cfg.Rules) != len(checkin.DefaultFilterConfig().Rules) {
		t.Fatalf("built-in defaults: got=%d rules", len(cfg.Rules))
	}

	path := filepath.Join(t.TempDir(), "rules.yaml")
	raw := "rules:\n  - kind: redact_phrase\n    pattern: scale\n  - kind: max_length\n    limit: 300\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	cfg, err = LoadDefaultFilterConfig(path)
	if err != nil {
		t.Fatalf("LoadDefaultFilterConfig(file): %v", err)
	}
	if len(cfg.Rules) != 2 || cfg.Rules[1].Limit != 300 {
		t.Fatalf("file rules: got=%+v", cfg)
	}

	if _, err := LoadDefaultFilterConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
