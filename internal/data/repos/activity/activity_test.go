package activity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/checkin-engine/internal/data/repos/testutil"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
)

func TestMacroLogRepoListInRangeIsHalfOpen(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMacroLogRepo(db, testutil.Logger(t))

	clientID := uuid.New()
	to := time.Date(2026, 10, 12, 13, 0, 0, 0, time.UTC)
	from := to.Add(-7 * 24 * time.Hour)

	// Two rows inside the window; the rest sit on or outside its edges.
	testutil.SeedMacroLog(t, ctx, tx, clientID, from, 2000, 2000, 150, 150)
	testutil.SeedMacroLog(t, ctx, tx, clientID, from.Add(48*time.Hour), 1800, 2000, 120, 150)
	testutil.SeedMacroLog(t, ctx, tx, clientID, to, 1000, 2000, 90, 150)
	testutil.SeedMacroLog(t, ctx, tx, clientID, from.Add(-time.Second), 1, 2000, 1, 150)
	testutil.SeedMacroLog(t, ctx, tx, uuid.New(), from.Add(time.Hour), 1, 2000, 1, 150)

	got, err := repo.ListInRange(dbctx.Context{Ctx: ctx, Tx: tx}, clientID, from, to)
	if err != nil {
		t.Fatalf("ListInRange: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListInRange: want=2 got=%d", len(got))
	}
	if !got[0].LoggedAt.After(got[1].LoggedAt) {
		t.Fatalf("ListInRange: expected newest first, got %s then %s", got[0].LoggedAt, got[1].LoggedAt)
	}
}

func TestWeightEntryRepoEmptyIsNotAnError(t *testing.T) {
	db := testutil.DB(t)
	repo := NewWeightEntryRepo(db, testutil.Logger(t))
	now := time.Now().UTC()
	got, err := repo.ListInRange(dbctx.Context{Ctx: context.Background()}, uuid.New(), now.Add(-7*24*time.Hour), now)
	if err != nil {
		t.Fatalf("ListInRange: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("ListInRange: want empty non-nil slice got=%v", got)
	}
}
