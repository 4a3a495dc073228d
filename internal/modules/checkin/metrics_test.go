package checkin

import (
	"math"
	"testing"
	"time"

	types "github.com/yungbote/checkin-engine/internal/domain"
)

func TestComputeEmptyBundle(t *testing.T) {
	got := Compute(WeeklyBundle{})
	if got != (AdherenceMetrics{}) {
		t.Fatalf("want zero metrics got=%+v", got)
	}
}

func TestComputeClampsComplianceAt100(t *testing.T) {
	day := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	got := Compute(WeeklyBundle{MacroLogs: []*types.MacroLogEntry{
		{LoggedAt: day, Calories: 4000, TargetCalories: 2000, Protein: 300, TargetProtein: 150},
		{LoggedAt: day.Add(24 * time.Hour), Calories: 1000, TargetCalories: 2000, Protein: 75, TargetProtein: 150},
	}})
	if got.AvgCalorieCompliance != 75 || got.AvgProteinCompliance != 75 {
		t.Fatalf("want 75/75 got=%v/%v", got.AvgCalorieCompliance, got.AvgProteinCompliance)
	}
}

func TestComputeCountsAndAveragesOverSameLogs(t *testing.T) {
	base := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	var logs []*types.MacroLogEntry
	for d := 0; d < 4; d++ {
		logs = append(logs, &types.MacroLogEntry{LoggedAt: base.Add(time.Duration(d) * 24 * time.Hour), Calories: 2000, TargetCalories: 2000})
	}
	// Second upload on an already-logged day counts as its own log.
	logs = append(logs, &types.MacroLogEntry{LoggedAt: base.Add(6 * time.Hour), Calories: 1500, TargetCalories: 2000}, nil)

	got := Compute(WeeklyBundle{MacroLogs: logs})
	if got.UploadCount != 5 || got.UploadPercentage != 71 {
		t.Fatalf("want 5 logs / 71%% got=%d / %d", got.UploadCount, got.UploadPercentage)
	}
	if got.AvgCalorieCompliance != 95 {
		t.Fatalf("calorie average over the counted logs: want=95 got=%v", got.AvgCalorieCompliance)
	}
}

func TestComputeUploadPercentageCapped(t *testing.T) {
	base := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	var logs []*types.MacroLogEntry
	for d := 0; d < 8; d++ {
		logs = append(logs, &types.MacroLogEntry{LoggedAt: base.Add(time.Duration(d) * 24 * time.Hour)})
	}
	if got := Compute(WeeklyBundle{MacroLogs: logs}); got.UploadPercentage != 100 {
		t.Fatalf("want 100 got=%d", got.UploadPercentage)
	}
}

func TestComplianceMissingTarget(t *testing.T) {
	cases := []struct {
		actual, target, want float64
	}{
		{1500, 0, 0},
		{1500, -10, 0},
		{1500, 2000, 75},
		{-100, 2000, -5},
		{math.NaN(), 2000, 0},
	}
	for _, tc := range cases {
		if got := Compliance(tc.actual, tc.target); got != tc.want {
			t.Fatalf("Compliance(%v, %v): want=%v got=%v", tc.actual, tc.target, tc.want, got)
		}
	}
}

func TestComputeWeightChange(t *testing.T) {
	base := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	got := Compute(WeeklyBundle{WeightEntries: []*types.WeightEntry{
		{RecordedAt: base.Add(72 * time.Hour), Weight: 197.5},
		{RecordedAt: base, Weight: 199},
		{RecordedAt: base.Add(24 * time.Hour), Weight: 198},
	}})
	if got.WeightLogCount != 3 || round1(got.WeightChange) != -1.5 {
		t.Fatalf("want 3 logs / -1.5 got=%d / %v", got.WeightLogCount, got.WeightChange)
	}
	single := Compute(WeeklyBundle{WeightEntries: []*types.WeightEntry{{RecordedAt: base, Weight: 199}}})
	if single.WeightChange != 0 {
		t.Fatalf("single reading: want 0 got=%v", single.WeightChange)
	}
}
