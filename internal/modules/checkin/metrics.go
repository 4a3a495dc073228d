package checkin

import (
	"math"

	types "github.com/yungbote/checkin-engine/internal/domain"
)

const daysPerWeek = 7

type AdherenceMetrics struct {
	UploadCount          int     `json:"upload_count"`
	UploadPercentage     int     `json:"upload_percentage"`
	AvgCalorieCompliance float64 `json:"avg_calorie_compliance"`
	AvgProteinCompliance float64 `json:"avg_protein_compliance"`
	WeightLogCount       int     `json:"weight_log_count"`
	WeightChange         float64 `json:"weight_change"`
}

// Compute derives adherence numbers from one week of data. UploadCount and
// both averages run over the same set of non-nil logs. An empty bundle yields
// the zero value; no field is ever NaN.
func Compute(bundle WeeklyBundle) AdherenceMetrics {
	out := AdherenceMetrics{WeightLogCount: len(bundle.WeightEntries)}

	var calSum, proSum float64
	for _, m := range bundle.MacroLogs {
		if m == nil {
			continue
		}
		out.UploadCount++
		calSum += Compliance(m.Calories, m.TargetCalories)
		proSum += Compliance(m.Protein, m.TargetProtein)
	}
	if out.UploadCount > 0 {
		out.AvgCalorieCompliance = calSum / float64(out.UploadCount)
		out.AvgProteinCompliance = proSum / float64(out.UploadCount)
	}
	out.UploadPercentage = int(math.Min(100, math.Round(100*float64(out.UploadCount)/daysPerWeek)))
	out.WeightChange = weightChange(bundle.WeightEntries)
	return out
}

// Compliance is 100*actual/target clamped above at 100. A missing or
// non-positive target counts as 0%.
func Compliance(actual, target float64) float64 {
	if target <= 0 || math.IsNaN(actual) || math.IsNaN(target) || math.IsInf(actual, 0) {
		return 0
	}
	return math.Min(100, 100*actual/target)
}

func weightChange(entries []*types.WeightEntry) float64 {
	var first, last *types.WeightEntry
	for _, w := range entries {
		if w == nil {
			continue
		}
		if first == nil || w.RecordedAt.Before(first.RecordedAt) {
			first = w
		}
		if last == nil || w.RecordedAt.After(last.RecordedAt) {
			last = w
		}
	}
	if first == nil || first == last {
		return 0
	}
	return last.Weight - first.Weight
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
