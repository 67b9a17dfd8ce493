package dashboard

import (
	"math"

	"github.com/palletops/warehouse-monitor/internal/anomaly"
)

// Summary rolls the classifier and scorer output into the counts every
// view header displays.
type Summary struct {
	CriticalCount       int     `json:"critical_count"`
	ReviewCount         int     `json:"review_count"`
	ResolvedCount       int     `json:"resolved_count"`
	ActiveCount         int     `json:"active_count"`
	TotalAnomalies      int     `json:"total_anomalies"`
	LocationsAffected   int     `json:"locations_affected"`
	UrgentCount         int     `json:"urgent_count"`
	QuickWinsCount      int     `json:"quick_wins_count"`
	EstimatedCostPerDay float64 `json:"estimated_cost_per_day"`
	Estimated           bool    `json:"estimated"`
}

// FallbackSplit is the percentage split applied when the per-anomaly detail
// is unavailable but the action center reports active items. The numbers
// are heuristic placeholders, kept configurable rather than hard-coded.
type FallbackSplit struct {
	CriticalPct int
	ReviewPct   int
	ResolvedPct int
}

// DefaultFallbackSplit mirrors the historical 30/55/15 split.
var DefaultFallbackSplit = FallbackSplit{CriticalPct: 30, ReviewPct: 55, ResolvedPct: 15}

// BuildSummary aggregates classification buckets and insights into view
// counts. When no anomaly records are available but the action center says
// totalActive items exist, bucket counts are estimated from the fallback
// split and flagged as such.
func BuildSummary(cls anomaly.Classification, ins anomaly.Insights, totalActive int, split FallbackSplit) Summary {
	total := len(cls.Critical) + len(cls.Review) + len(cls.Resolved)

	if total == 0 && totalActive > 0 {
		if split == (FallbackSplit{}) {
			split = DefaultFallbackSplit
		}
		return Summary{
			CriticalCount:       pct(totalActive, split.CriticalPct),
			ReviewCount:         pct(totalActive, split.ReviewPct),
			ResolvedCount:       pct(totalActive, split.ResolvedPct),
			ActiveCount:         totalActive,
			TotalAnomalies:      totalActive,
			UrgentCount:         ins.UrgentCount,
			QuickWinsCount:      ins.QuickWinsCount,
			EstimatedCostPerDay: ins.EstimatedCostPerDay,
			Estimated:           true,
		}
	}

	locations := make(map[string]struct{})
	for _, a := range cls.Critical {
		locations[a.LocationName] = struct{}{}
	}
	for _, a := range cls.Review {
		locations[a.LocationName] = struct{}{}
	}

	return Summary{
		CriticalCount:       len(cls.Critical),
		ReviewCount:         len(cls.Review),
		ResolvedCount:       len(cls.Resolved),
		ActiveCount:         len(cls.Critical) + len(cls.Review),
		TotalAnomalies:      total,
		LocationsAffected:   len(locations),
		UrgentCount:         ins.UrgentCount,
		QuickWinsCount:      ins.QuickWinsCount,
		EstimatedCostPerDay: ins.EstimatedCostPerDay,
	}
}

func pct(total, percent int) int {
	return int(math.Round(float64(total) * float64(percent) / 100))
}
