package domain

import (
	"strings"
	"time"
)

// AnomalyType enumerates the kinds of inventory anomalies the analysis
// backend reports. The set is closed: any type string the backend sends
// that we do not recognize maps to TypeUnknown so that new backend types
// degrade safely instead of silently mis-bucketing.
type AnomalyType string

const (
	TypeStagnantPallet          AnomalyType = "stagnant_pallet"
	TypeOvercapacity            AnomalyType = "overcapacity"
	TypeInvalidLocation         AnomalyType = "invalid_location"
	TypeTemperatureZoneMismatch AnomalyType = "temperature_zone_mismatch"
	TypeUncoordinatedLots       AnomalyType = "uncoordinated_lots"
	TypeDuplicateScan           AnomalyType = "duplicate_scan"
	TypeDataIntegrity           AnomalyType = "data_integrity"
	TypeLocationMappingError    AnomalyType = "location_mapping_error"
	TypeUnknown                 AnomalyType = "unknown"
)

// knownTypes is the closed set accepted from the backend.
var knownTypes = map[AnomalyType]bool{
	TypeStagnantPallet:          true,
	TypeOvercapacity:            true,
	TypeInvalidLocation:         true,
	TypeTemperatureZoneMismatch: true,
	TypeUncoordinatedLots:       true,
	TypeDuplicateScan:           true,
	TypeDataIntegrity:           true,
	TypeLocationMappingError:    true,
}

// ParseAnomalyType maps a raw backend type string onto the closed enum.
// Unrecognized values return TypeUnknown.
func ParseAnomalyType(s string) AnomalyType {
	t := AnomalyType(strings.ToLower(strings.TrimSpace(s)))
	if knownTypes[t] {
		return t
	}
	return TypeUnknown
}

// Priority is the backend-assigned urgency of an anomaly.
type Priority string

const (
	PriorityVeryHigh Priority = "very_high"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ParsePriority maps a raw priority string onto the enum, defaulting to
// PriorityLow for anything unrecognized.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityVeryHigh:
		return PriorityVeryHigh
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Status is the workflow state of an anomaly.
type Status string

const (
	StatusNew          Status = "new"
	StatusAcknowledged Status = "acknowledged"
	StatusInProgress   Status = "in_progress"
	StatusResolved     Status = "resolved"
)

// ParseStatus maps a raw status string onto the enum, defaulting to StatusNew.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusAcknowledged:
		return StatusAcknowledged
	case StatusInProgress:
		return StatusInProgress
	case StatusResolved:
		return StatusResolved
	default:
		return StatusNew
	}
}

// Active reports whether the anomaly still needs operator attention.
// Acknowledged and in-progress anomalies are already being handled and
// count as inactive for classification and scoring purposes.
func (s Status) Active() bool {
	switch s {
	case StatusResolved, StatusAcknowledged, StatusInProgress:
		return false
	default:
		return true
	}
}

// AnomalyRecord is a single detected inventory irregularity.
type AnomalyRecord struct {
	ID              string      `json:"id"`
	Type            AnomalyType `json:"type"`
	Priority        Priority    `json:"priority"`
	Status          Status      `json:"status"`
	LocationName    string      `json:"location_name"`
	Details         string      `json:"details"`
	FinancialImpact float64     `json:"financial_impact"` // currency per day
	DetectedAt      time.Time   `json:"detected_at"`
}

// LocationSummary groups the anomalies detected at one warehouse location.
type LocationSummary struct {
	Name         string          `json:"name"`
	Anomalies    []AnomalyRecord `json:"anomalies"`
	AnomalyCount int             `json:"anomaly_count"`
}

// ReportSummary is one uploaded inventory report as listed by the backend.
type ReportSummary struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Timestamp    time.Time `json:"timestamp"`
	AnomalyCount int       `json:"anomaly_count"`
}
