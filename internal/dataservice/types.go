package dataservice

import (
	"github.com/palletops/warehouse-monitor/internal/domain"
)

// ActionCenterSnapshot is the backend's rollup of open action items.
// This is the one mandatory fetch per refresh cycle.
type ActionCenterSnapshot struct {
	Categories           []ActionCategory `json:"categories"`
	TotalActiveItems     int              `json:"total_active_items"`
	ResolvedToday        int              `json:"resolved_today"`
	TotalFinancialImpact float64          `json:"total_financial_impact"`
}

// ActionCategory is one action-item group keyed by anomaly type.
type ActionCategory struct {
	Type        domain.AnomalyType `json:"type"`
	Label       string             `json:"label"`
	ActiveItems int                `json:"active_items"`
	Impact      float64            `json:"impact"`
}

// AchievementsSnapshot carries the gamified health metrics. Optional:
// a failed fetch leaves the dashboard field absent.
type AchievementsSnapshot struct {
	Achievements []Achievement `json:"achievements"`
	HealthScore  float64       `json:"health_score"`
}

// Achievement is one earned operations milestone.
type Achievement struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	EarnedAt string `json:"earned_at,omitempty"`
}

// ReportDetail holds the per-location anomaly breakdown of one report.
type ReportDetail struct {
	ReportID  int64                    `json:"report_id"`
	Locations []domain.LocationSummary `json:"locations"`
}

// SpaceUtilization carries warehouse capacity figures for one report.
// Optional: a failed fetch leaves the dashboard field absent.
type SpaceUtilization struct {
	UtilizationPercentage float64 `json:"utilization_percentage"`
	InventoryCount        int     `json:"inventory_count"`
	WarehouseCapacity     int     `json:"warehouse_capacity"`
	AvailableSpace        int     `json:"available_space"`
}

// ResolveResult is the backend acknowledgement for resolve operations.
type ResolveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
