package settings

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/checkin-engine/internal/data/repos/testutil"
	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
)

func TestCoachSettingsRepoUpsert(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewCoachSettingsRepo(db, testutil.Logger(t))
	coachID := uuid.New()

	got, err := repo.GetByCoachID(dbc, coachID)
	if err != nil || got != nil {
		t.Fatalf("GetByCoachID (missing): got=%+v err=%v", got, err)
	}

	if err := repo.Upsert(dbc, &types.CoachSettings{CoachID: coachID, FilterRules: datatypes.JSON(`[{"kind":"collapse_whitespace"}]`)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, &types.CoachSettings{CoachID: coachID, FilterRules: datatypes.JSON(`[{"kind":"max_length","limit":100}]`)}); err != nil {
		t.Fatalf("Upsert (update): %v", err)
	}
	got, err = repo.GetByCoachID(dbc, coachID)
	if err != nil || got == nil {
		t.Fatalf("GetByCoachID: got=%+v err=%v", got, err)
	}
	var rules []map[string]any
	if err := json.Unmarshal(got.FilterRules, &rules); err != nil {
		t.Fatalf("FilterRules: %v", err)
	}
	if len(rules) != 1 || rules[0]["kind"] != "max_length" {
		t.Fatalf("FilterRules: want updated rules got=%s", string(got.FilterRules))
	}
}
