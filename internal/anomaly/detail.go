package anomaly

import (
	"regexp"
	"strconv"
)

// The backend encodes a few numeric facts inside the free-text details
// field. The parsers below are the only place that text format is
// interpreted; they default to zero on any mismatch and never fail.

// capacityPattern matches "<int> pallets (capacity: <int>)".
var capacityPattern = regexp.MustCompile(`(\d+)\s*pallets\s*\(capacity:\s*(\d+)\)`)

// blockedHoursPattern matches a float immediately followed by "h",
// e.g. "blocked for 4.5h" or "12h".
var blockedHoursPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)h\b`)

// CapacityRatio extracts the pallets/capacity ratio from an overcapacity
// detail string. Returns 0 when the text does not match the expected
// pattern or when the stated capacity is zero.
func CapacityRatio(details string) float64 {
	m := capacityPattern.FindStringSubmatch(details)
	if m == nil {
		return 0
	}
	pallets, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	capacity, err := strconv.ParseFloat(m[2], 64)
	if err != nil || capacity == 0 {
		return 0
	}
	return pallets / capacity
}

// BlockedHours extracts the blocked-hours figure from a stagnant-pallet
// detail string. Returns 0 when no hour value is present.
func BlockedHours(details string) float64 {
	m := blockedHoursPattern.FindStringSubmatch(details)
	if m == nil {
		return 0
	}
	hours, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return hours
}
