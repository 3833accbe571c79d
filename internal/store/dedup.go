// Package store maintains the canonical observation and memory records:
// in-memory deduplication plus the SQLite persistence behind it.
package store

import (
	"github.com/rcliao/session-insight/internal/model"
	"github.com/rcliao/session-insight/internal/similarity"
)

// DefaultSimilarityThreshold is the token-overlap score above which two
// observation texts in the same category are the same pattern.
const DefaultSimilarityThreshold = 0.8

// Collection deduplicates candidate observations against the records loaded
// from storage. It is pure in-memory state; load it, ingest a batch, then
// persist Records. One analysis run at a time is assumed.
type Collection struct {
	// GuardSessions skips the count bump when a matched record already
	// carries every session id of the candidate, making re-analysis of the
	// same session idempotent.
	GuardSessions bool

	threshold float64
	records   []model.Observation
}

// NewCollection wraps existing records for ingestion. A non-positive
// threshold falls back to the default.
func NewCollection(existing []model.Observation, threshold float64) *Collection {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	records := make([]model.Observation, len(existing))
	copy(records, existing)
	return &Collection{threshold: threshold, records: records}
}

// Ingest merges the candidate into a semantically matching record (bumping
// its count and widening provenance) or inserts it as a new record. It
// returns the id of the canonical record the candidate ended up in. Never
// errors; an unmatched candidate simply becomes a new record.
func (c *Collection) Ingest(cand model.Observation) string {
	for i := range c.records {
		rec := &c.records[i]
		if !c.matches(*rec, cand) {
			continue
		}
		if c.GuardSessions && containsAll(rec.SourceSessionIDs, cand.SourceSessionIDs) {
			return rec.ID
		}
		model.MergeObservation(rec, cand)
		return rec.ID
	}
	c.records = append(c.records, cand)
	return cand.ID
}

// matches applies the dedup rule: same category, and either identical text
// or token overlap at or above the threshold.
func (c *Collection) matches(rec, cand model.Observation) bool {
	if rec.Category != cand.Category {
		return false
	}
	if rec.Text == cand.Text {
		return true
	}
	return similarity.TokenOverlap(rec.Text, cand.Text) >= c.threshold
}

// Records returns the current canonical records.
func (c *Collection) Records() []model.Observation {
	return c.records
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, s := range have {
		set[s] = true
	}
	for _, s := range want {
		if !set[s] {
			return false
		}
	}
	return true
}
