package model

import (
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

func testObservation(id string, count int, sessions ...string) Observation {
	return Observation{
		ID:               id,
		Text:             "Workflow pattern: read → edit → bash (2 times)",
		Category:         CategoryWorkflow,
		Count:            count,
		Status:           StatusPending,
		SourceSessionIDs: sessions,
		FirstSeen:        testNow.Add(-48 * time.Hour),
		LastSeen:         testNow,
	}
}

func TestAggregateProjectMemory_Empty(t *testing.T) {
	if _, err := AggregateProjectMemory("m1", "proj", nil, testNow); err == nil {
		t.Error("expected error aggregating zero session memories")
	}
}

func TestAggregateGlobalMemory_Empty(t *testing.T) {
	if _, err := AggregateGlobalMemory("m1", nil, testNow); err == nil {
		t.Error("expected error aggregating zero project memories")
	}
}

func TestAggregateProjectMemory(t *testing.T) {
	a := NewSessionMemory("sm1", "s1", testObservation("o1", 3, "s1"), testNow.Add(-24*time.Hour))
	b := NewSessionMemory("sm2", "s2", testObservation("o1", 4, "s2", "s1"), testNow)
	b.Observation.Tags = []string{"tool"}
	b.Observation.Status = StatusApproved
	b.Observation.FirstSeen = testNow.Add(-72 * time.Hour)

	pm, err := AggregateProjectMemory("pm1", "proj", []*Memory{a, b}, testNow)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if pm.Scope != ScopeProject || pm.ProjectID != "proj" {
		t.Errorf("expected project scope for proj, got %q/%q", pm.Scope, pm.ProjectID)
	}
	if pm.Observation.Count != 7 {
		t.Errorf("expected count 7, got %d", pm.Observation.Count)
	}
	if got := pm.Observation.SourceSessionIDs; len(got) != 2 || got[0] != "s1" || got[1] != "s2" {
		t.Errorf("expected deduplicated union [s1 s2], got %v", got)
	}
	if !pm.Observation.FirstSeen.Equal(testNow.Add(-72 * time.Hour)) {
		t.Errorf("expected widened firstSeen, got %v", pm.Observation.FirstSeen)
	}
	if !pm.Observation.LastSeen.Equal(testNow) {
		t.Errorf("expected widened lastSeen, got %v", pm.Observation.LastSeen)
	}
	if pm.Observation.Text != a.Observation.Text {
		t.Errorf("expected text from first child, got %q", pm.Observation.Text)
	}
	if pm.Observation.Status != StatusPending {
		t.Errorf("expected status reset to pending, got %q", pm.Observation.Status)
	}
	if len(pm.Observation.Tags) != 1 || pm.Observation.Tags[0] != "tool" {
		t.Errorf("expected tags union [tool], got %v", pm.Observation.Tags)
	}
	if len(pm.ChildMemoryIDs) != 2 || pm.ChildMemoryIDs[0] != "sm1" || pm.ChildMemoryIDs[1] != "sm2" {
		t.Errorf("expected children [sm1 sm2], got %v", pm.ChildMemoryIDs)
	}
}

func TestAggregateGlobalMemory(t *testing.T) {
	a := NewSessionMemory("sm1", "s1", testObservation("o1", 2, "s1"), testNow)
	pm1, _ := AggregateProjectMemory("pm1", "p1", []*Memory{a}, testNow)
	b := NewSessionMemory("sm2", "s2", testObservation("o1", 5, "s2"), testNow)
	pm2, _ := AggregateProjectMemory("pm2", "p2", []*Memory{b}, testNow)

	gm, err := AggregateGlobalMemory("gm1", []*Memory{pm1, pm2}, testNow)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if gm.Scope != ScopeGlobal {
		t.Errorf("expected global scope, got %q", gm.Scope)
	}
	if gm.Observation.Count != 7 {
		t.Errorf("expected count 7, got %d", gm.Observation.Count)
	}
	if len(gm.ChildMemoryIDs) != 2 {
		t.Errorf("expected 2 children, got %v", gm.ChildMemoryIDs)
	}
	if gm.SessionID != "" || gm.ProjectID != "" {
		t.Error("global memory should carry no discriminant")
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	m := NewSessionMemory("sm1", "s1", testObservation("o1", 3, "s1"), testNow)
	m.Observation.Tags = []string{"tool"}

	data, err := EncodeMemory(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeMemory(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Scope != ScopeSession || got.SessionID != "s1" {
		t.Errorf("scope not reconstructed: %q/%q", got.Scope, got.SessionID)
	}
	if got.Observation.Count != 3 || got.Observation.Text != m.Observation.Text {
		t.Error("observation not preserved")
	}
	if !got.CreatedAt.Equal(m.CreatedAt) {
		t.Errorf("createdAt not preserved: %v vs %v", got.CreatedAt, m.CreatedAt)
	}
}

func TestDecodeMemory_MissingSessionID(t *testing.T) {
	data := []byte(`{"id":"m1","scope":"session","observation":{"id":"o1"}}`)
	_, err := DecodeMemory(data)
	if err == nil {
		t.Fatal("expected error for session memory without sessionId")
	}
	if !strings.Contains(err.Error(), "sessionId") {
		t.Errorf("error should name the missing field, got %q", err)
	}
}

func TestDecodeMemory_MissingProjectID(t *testing.T) {
	data := []byte(`{"id":"m1","scope":"project","observation":{"id":"o1"}}`)
	_, err := DecodeMemory(data)
	if err == nil {
		t.Fatal("expected error for project memory without projectId")
	}
	if !strings.Contains(err.Error(), "projectId") {
		t.Errorf("error should name the missing field, got %q", err)
	}
}

func TestDecodeMemory_UnknownScope(t *testing.T) {
	data := []byte(`{"id":"m1","scope":"galactic","observation":{"id":"o1"}}`)
	if _, err := DecodeMemory(data); err == nil {
		t.Fatal("expected error for unknown scope tag")
	}
}
