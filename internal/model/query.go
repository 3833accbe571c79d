package model

import "time"

// Filter selects memories from an in-memory collection. Set dimensions
// combine with AND; within Tags any overlap matches (OR).
type Filter struct {
	Scope    Scope
	MinCount int
	Category Category
	Tags     []string

	// EligibleForPromotion keeps only memories passing the promotion check
	// against Config at time Now (Now defaults to the current time).
	EligibleForPromotion bool
	Config               PromotionConfig
	Now                  time.Time
}

// QueryMemories returns the memories satisfying every set filter dimension.
func QueryMemories(memories []*Memory, f Filter) []*Memory {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}

	var out []*Memory
	for _, m := range memories {
		if f.Scope != "" && m.Scope != f.Scope {
			continue
		}
		if f.MinCount > 0 && m.Observation.Count < f.MinCount {
			continue
		}
		if f.Category != "" && m.Observation.Category != f.Category {
			continue
		}
		if len(f.Tags) > 0 && !tagsOverlap(m.Observation.Tags, f.Tags) {
			continue
		}
		if f.EligibleForPromotion && !m.CheckPromotionEligibility(f.Config, now).Eligible {
			continue
		}
		out = append(out, m)
	}
	return out
}

func tagsOverlap(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
