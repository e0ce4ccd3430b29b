// Package gate derives the production-readiness gate from a recommendation set.
package gate

import (
	"sort"

	"github.com/agentshield/api/pkg/domain/recommendation"
)

// Decision represents the gate outcome.
type Decision string

const (
	Blocked   Decision = "blocked"
	Unblocked Decision = "unblocked"
)

// String returns the string representation.
func (d Decision) String() string {
	return string(d)
}

// BlockingItem identifies one recommendation contributing to a blocked gate.
type BlockingItem struct {
	RecommendationID string                  `json:"recommendation_id"`
	Severity         recommendation.Severity `json:"severity"`
	Title            string                  `json:"title"`
}

// Status is the derived gate state. It is never stored; it is recomputed from
// the live recommendation set on every evaluation.
type Status struct {
	Decision      Decision       `json:"gate_status"`
	BlockingCount int            `json:"blocking_count"`
	BlockingItems []BlockingItem `json:"blocking_items"`
}

// IsBlocked returns true if the gate blocks production readiness.
func (s Status) IsBlocked() bool {
	return s.Decision == Blocked
}

// Compute derives the gate status from a recommendation set.
//
// A recommendation blocks the gate when it is open (pending or fixing) and
// critical or high severity. Blocking items are sorted by the explicit
// severity order (critical < high < medium < low); the sort is stable so ties
// keep input order. The function is referentially transparent: the same input
// set always yields an identical result, which lets the client-rendered
// banner be cross-checked against a server-confirmed gate response.
func Compute(recs []*recommendation.Recommendation) Status {
	var blocking []*recommendation.Recommendation
	for _, r := range recs {
		if r.IsGateBlocking() {
			blocking = append(blocking, r)
		}
	}

	sort.SliceStable(blocking, func(i, j int) bool {
		return blocking[i].Severity().Rank() < blocking[j].Severity().Rank()
	})

	items := make([]BlockingItem, len(blocking))
	for i, r := range blocking {
		items[i] = BlockingItem{
			RecommendationID: r.ID().String(),
			Severity:         r.Severity(),
			Title:            r.Title(),
		}
	}

	decision := Unblocked
	if len(blocking) > 0 {
		decision = Blocked
	}

	return Status{
		Decision:      decision,
		BlockingCount: len(blocking),
		BlockingItems: items,
	}
}

// TopN returns a copy of the status with the item list truncated for display.
// BlockingCount always reflects the untruncated size.
func (s Status) TopN(n int) Status {
	if n < 0 || n >= len(s.BlockingItems) {
		return s
	}
	truncated := make([]BlockingItem, n)
	copy(truncated, s.BlockingItems[:n])
	s.BlockingItems = truncated
	return s
}
