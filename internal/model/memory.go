package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Scope is the hierarchy level of a memory.
type Scope string

const (
	ScopeSession Scope = "session"
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
)

// Memory wraps exactly one observation at a hierarchy level. Project and
// global memories are built only through the aggregation constructors, so
// ChildMemoryIDs always reflects the memories they were rolled up from.
// Children are referenced by id into a flat store, not owned.
type Memory struct {
	ID             string      `json:"id"`
	Scope          Scope       `json:"scope"`
	Observation    Observation `json:"observation"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	ChildMemoryIDs []string    `json:"childMemoryIds,omitempty"`
	SessionID      string      `json:"sessionId,omitempty"`
	ProjectID      string      `json:"projectId,omitempty"`
}

// NewSessionMemory wraps one observation at session scope.
func NewSessionMemory(id, sessionID string, obs Observation, now time.Time) *Memory {
	return &Memory{
		ID:          id,
		Scope:       ScopeSession,
		Observation: obs,
		CreatedAt:   now,
		UpdatedAt:   now,
		SessionID:   sessionID,
	}
}

// AggregateProjectMemory rolls session memories up into one project memory.
// Returns an error when children is empty; aggregating nothing is a caller bug.
func AggregateProjectMemory(id, projectID string, children []*Memory, now time.Time) (*Memory, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("aggregate project memory %q: no session memories given", projectID)
	}
	return &Memory{
		ID:             id,
		Scope:          ScopeProject,
		Observation:    aggregateObservation(children),
		CreatedAt:      now,
		UpdatedAt:      now,
		ChildMemoryIDs: memoryIDs(children),
		ProjectID:      projectID,
	}, nil
}

// AggregateGlobalMemory rolls project memories up into one global memory.
// Returns an error when children is empty.
func AggregateGlobalMemory(id string, children []*Memory, now time.Time) (*Memory, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("aggregate global memory: no project memories given")
	}
	return &Memory{
		ID:             id,
		Scope:          ScopeGlobal,
		Observation:    aggregateObservation(children),
		CreatedAt:      now,
		UpdatedAt:      now,
		ChildMemoryIDs: memoryIDs(children),
	}, nil
}

// aggregateObservation merges the children's observations: counts sum, session
// ids and tags union, the seen window widens to cover all children. Identity
// (id, text, category) comes from the first child; status resets to pending
// because the rolled-up record has not been reviewed at this level.
func aggregateObservation(children []*Memory) Observation {
	first := children[0].Observation
	agg := Observation{
		ID:        first.ID,
		Text:      first.Text,
		Category:  first.Category,
		Status:    StatusPending,
		FirstSeen: first.FirstSeen,
		LastSeen:  first.LastSeen,
	}
	for _, c := range children {
		o := c.Observation
		agg.Count += o.Count
		agg.SourceSessionIDs = unionStrings(agg.SourceSessionIDs, o.SourceSessionIDs)
		agg.Tags = unionStrings(agg.Tags, o.Tags)
		if !o.FirstSeen.IsZero() && o.FirstSeen.Before(agg.FirstSeen) {
			agg.FirstSeen = o.FirstSeen
		}
		if o.LastSeen.After(agg.LastSeen) {
			agg.LastSeen = o.LastSeen
		}
		for k, v := range o.Metadata {
			if agg.Metadata == nil {
				agg.Metadata = make(map[string]any)
			}
			if _, ok := agg.Metadata[k]; !ok {
				agg.Metadata[k] = v
			}
		}
	}
	return agg
}

func memoryIDs(memories []*Memory) []string {
	ids := make([]string, len(memories))
	for i, m := range memories {
		ids[i] = m.ID
	}
	return ids
}

// Validate checks that the scope tag is known and that the discriminant the
// scope requires is present. Persisted records that fail this are corrupt and
// must be surfaced loudly, not silently misclassified.
func (m *Memory) Validate() error {
	switch m.Scope {
	case ScopeSession:
		if m.SessionID == "" {
			return fmt.Errorf("memory %s: session scope missing sessionId", m.ID)
		}
	case ScopeProject:
		if m.ProjectID == "" {
			return fmt.Errorf("memory %s: project scope missing projectId", m.ID)
		}
	case ScopeGlobal:
	default:
		return fmt.Errorf("memory %s: unknown scope %q", m.ID, m.Scope)
	}
	return nil
}

// EncodeMemory serializes a memory to JSON with its scope tag, nested
// observation, and scope discriminant.
func EncodeMemory(m *Memory) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode memory: %w", err)
	}
	return b, nil
}

// DecodeMemory parses a memory from JSON, reconstructing the scope from its
// tag. Corrupt records (unknown scope, missing discriminant) error out.
func DecodeMemory(data []byte) (*Memory, error) {
	var m Memory
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode memory: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
