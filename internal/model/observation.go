// Package model defines the observation and memory data types.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category classifies the kind of behavior an observation captures.
type Category string

const (
	CategoryPreference Category = "preference"
	CategoryPattern    Category = "pattern"
	CategoryWorkflow   Category = "workflow"
	CategoryToolChoice Category = "tool-choice"
	CategoryStyle      Category = "style"
	CategoryOther      Category = "other"
)

// Status tracks an observation through review and promotion. Transitions
// are monotonic; denied and promoted-to-core are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusLongTerm Status = "promoted-to-long-term"
	StatusCore     Status = "promoted-to-core"
)

// Observation is a recorded behavioral pattern with a recurrence count and
// session provenance. Observations are never deleted, only status-terminated.
type Observation struct {
	ID               string         `json:"id"`
	Text             string         `json:"text"`
	Category         Category       `json:"category"`
	Count            int            `json:"count"`
	Status           Status         `json:"status"`
	SourceSessionIDs []string       `json:"sourceSessionIds"`
	FirstSeen        time.Time      `json:"firstSeen"`
	LastSeen         time.Time      `json:"lastSeen"`
	Tags             []string       `json:"tags,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// EncodeObservation serializes an observation to JSON. Timestamps are
// RFC 3339 with sub-second precision, so round-trips keep milliseconds.
func EncodeObservation(o Observation) ([]byte, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode observation: %w", err)
	}
	return b, nil
}

// DecodeObservation parses an observation from JSON.
func DecodeObservation(data []byte) (Observation, error) {
	var o Observation
	if err := json.Unmarshal(data, &o); err != nil {
		return Observation{}, fmt.Errorf("decode observation: %w", err)
	}
	return o, nil
}

// MergeObservation folds candidate src into existing record dst: counts add,
// session provenance unions, and the first/last-seen window widens. The
// existing status wins, and existing metadata keys are kept over incoming ones.
func MergeObservation(dst *Observation, src Observation) {
	dst.Count += src.Count
	dst.SourceSessionIDs = unionStrings(dst.SourceSessionIDs, src.SourceSessionIDs)
	if !src.FirstSeen.IsZero() && (dst.FirstSeen.IsZero() || src.FirstSeen.Before(dst.FirstSeen)) {
		dst.FirstSeen = src.FirstSeen
	}
	if src.LastSeen.After(dst.LastSeen) {
		dst.LastSeen = src.LastSeen
	}
	dst.Tags = unionStrings(dst.Tags, src.Tags)
	for k, v := range src.Metadata {
		if dst.Metadata == nil {
			dst.Metadata = make(map[string]any)
		}
		if _, ok := dst.Metadata[k]; !ok {
			dst.Metadata[k] = v
		}
	}
}

// unionStrings appends the elements of add that are not already in base,
// preserving first-seen order.
func unionStrings(base, add []string) []string {
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base)+len(add))
	for _, s := range base {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
