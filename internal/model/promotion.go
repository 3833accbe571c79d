package model

import (
	"fmt"
	"strings"
	"time"
)

// PromotionConfig holds the thresholds a memory must clear before promotion
// to long-term storage.
type PromotionConfig struct {
	ObservationCountThreshold int `json:"observationCountThreshold" yaml:"observation_count_threshold"`
	LongTermDaysThreshold     int `json:"longTermDaysThreshold" yaml:"long_term_days_threshold"`
}

// Eligibility is the structured result of a promotion check. Reason is set
// only when ineligible and names every unmet dimension.
type Eligibility struct {
	Eligible      bool   `json:"eligible"`
	Reason        string `json:"reason,omitempty"`
	CurrentCount  int    `json:"currentCount"`
	RequiredCount int    `json:"requiredCount"`
	CurrentDays   int    `json:"currentDays"`
	RequiredDays  int    `json:"requiredDays"`
}

// DaysSince returns whole days elapsed from the memory's creation to now.
func (m *Memory) DaysSince(now time.Time) int {
	return int(now.Sub(m.CreatedAt) / (24 * time.Hour))
}

// CheckPromotionEligibility reports whether the memory has recurred often
// enough and aged long enough to promote. Global memories additionally need
// corroboration from at least 2 source sessions, and that requirement is
// reported alone when unmet. Never errors; callers render Reason directly.
func (m *Memory) CheckPromotionEligibility(cfg PromotionConfig, now time.Time) Eligibility {
	res := Eligibility{
		CurrentCount:  m.Observation.Count,
		RequiredCount: cfg.ObservationCountThreshold,
		CurrentDays:   m.DaysSince(now),
		RequiredDays:  cfg.LongTermDaysThreshold,
	}

	if m.Scope == ScopeGlobal {
		sessions := unionStrings(nil, m.Observation.SourceSessionIDs)
		if len(sessions) < 2 {
			res.Reason = fmt.Sprintf("needs at least 2 source sessions, has %d", len(sessions))
			return res
		}
	}

	var unmet []string
	if res.CurrentCount < res.RequiredCount {
		unmet = append(unmet, fmt.Sprintf("count %d below required %d", res.CurrentCount, res.RequiredCount))
	}
	if res.CurrentDays < res.RequiredDays {
		unmet = append(unmet, fmt.Sprintf("%d days since creation, %d days required", res.CurrentDays, res.RequiredDays))
	}
	if len(unmet) > 0 {
		res.Reason = strings.Join(unmet, "; ")
		return res
	}

	res.Eligible = true
	return res
}

// LongTermMemory is the immutable snapshot written when a global memory is
// promoted with human approval. It is an audit record and never mutated.
type LongTermMemory struct {
	ID          string      `json:"id"`
	Observation Observation `json:"observation"`
	Status      Status      `json:"status"`
	PromotedAt  time.Time   `json:"promotedAt"`
}

// ToLongTermMemory snapshots a global memory for long-term storage. Only
// global memories promote; anything else is a caller bug.
func (m *Memory) ToLongTermMemory(id string, promotedAt time.Time) (*LongTermMemory, error) {
	if m.Scope != ScopeGlobal {
		return nil, fmt.Errorf("memory %s: only global memories promote to long-term, got scope %q", m.ID, m.Scope)
	}
	return &LongTermMemory{
		ID:          id,
		Observation: m.Observation,
		Status:      StatusApproved,
		PromotedAt:  promotedAt,
	}, nil
}
