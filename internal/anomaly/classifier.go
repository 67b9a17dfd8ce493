// Package anomaly implements the deterministic classification and priority
// scoring engine for inventory anomalies. Both entry points are pure
// functions: they never fail, never mutate their input, and bucket each
// record independently of its position in the input slice.
package anomaly

import (
	"github.com/palletops/warehouse-monitor/internal/domain"
)

// overcapacityCriticalRatio is the pallets/capacity ratio at which an
// overcapacity anomaly escalates to critical.
const overcapacityCriticalRatio = 2.0

// Classification partitions a set of anomalies into three disjoint buckets
// that together cover exactly the input.
type Classification struct {
	Critical []domain.AnomalyRecord `json:"critical"`
	Review   []domain.AnomalyRecord `json:"review"`
	Resolved []domain.AnomalyRecord `json:"resolved"`
}

// Active returns the anomalies still needing attention (critical + review),
// in classification order. This is the input set for the priority scorer.
func (c Classification) Active() []domain.AnomalyRecord {
	active := make([]domain.AnomalyRecord, 0, len(c.Critical)+len(c.Review))
	active = append(active, c.Critical...)
	active = append(active, c.Review...)
	return active
}

// Classify partitions anomalies into critical/review/resolved buckets.
// Each record is evaluated against a fixed rule order, first match wins:
//
//  1. resolved/acknowledged/in-progress status -> resolved
//  2. stagnant pallet, invalid location, temperature zone mismatch -> critical
//  3. very-high priority -> critical
//  4. overcapacity at >= 2x stated capacity -> critical
//  5. uncoordinated lots -> critical
//  6. everything else -> review
//
// A record's bucket depends only on the record itself, so reordering the
// input changes only the order within buckets, never membership.
func Classify(anomalies []domain.AnomalyRecord) Classification {
	var c Classification
	for _, a := range anomalies {
		switch bucketFor(a) {
		case bucketResolved:
			c.Resolved = append(c.Resolved, a)
		case bucketCritical:
			c.Critical = append(c.Critical, a)
		default:
			c.Review = append(c.Review, a)
		}
	}
	return c
}

type bucket int

const (
	bucketReview bucket = iota
	bucketCritical
	bucketResolved
)

// bucketFor applies the classification rules to a single record.
func bucketFor(a domain.AnomalyRecord) bucket {
	if !a.Status.Active() {
		return bucketResolved
	}

	switch a.Type {
	case domain.TypeStagnantPallet, domain.TypeInvalidLocation, domain.TypeTemperatureZoneMismatch:
		return bucketCritical
	}

	if a.Priority == domain.PriorityVeryHigh {
		return bucketCritical
	}

	if a.Type == domain.TypeOvercapacity && CapacityRatio(a.Details) >= overcapacityCriticalRatio {
		return bucketCritical
	}

	if a.Type == domain.TypeUncoordinatedLots {
		return bucketCritical
	}

	return bucketReview
}
