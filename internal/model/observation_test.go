package model

import (
	"testing"
	"time"
)

func TestObservationRoundTrip(t *testing.T) {
	first := time.Date(2026, 8, 1, 9, 30, 15, 123_000_000, time.UTC)
	last := time.Date(2026, 8, 19, 22, 5, 0, 987_000_000, time.UTC)
	o := Observation{
		ID:               "o1",
		Text:             "Workflow pattern: read → edit → bash (2 times)",
		Category:         CategoryWorkflow,
		Count:            4,
		Status:           StatusApproved,
		SourceSessionIDs: []string{"s1", "s2"},
		FirstSeen:        first,
		LastSeen:         last,
		Tags:             []string{"tool", "editing"},
		Metadata:         map[string]any{"frequency": float64(2)},
	}

	data, err := EncodeObservation(o)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeObservation(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.ID != o.ID || got.Text != o.Text || got.Category != o.Category ||
		got.Count != o.Count || got.Status != o.Status {
		t.Error("scalar fields not preserved")
	}
	if len(got.SourceSessionIDs) != 2 || got.SourceSessionIDs[1] != "s2" {
		t.Errorf("source sessions not preserved: %v", got.SourceSessionIDs)
	}
	if !got.FirstSeen.Equal(first) {
		t.Errorf("firstSeen lost precision: %v vs %v", got.FirstSeen, first)
	}
	if !got.LastSeen.Equal(last) {
		t.Errorf("lastSeen lost precision: %v vs %v", got.LastSeen, last)
	}
	if len(got.Tags) != 2 {
		t.Errorf("tags not preserved: %v", got.Tags)
	}
	if got.Metadata["frequency"] != float64(2) {
		t.Errorf("metadata not preserved: %v", got.Metadata)
	}
}

func TestDecodeObservation_Malformed(t *testing.T) {
	if _, err := DecodeObservation([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestMergeObservation(t *testing.T) {
	dst := testObservation("o1", 3, "s1")
	dst.Status = StatusApproved
	dst.Metadata = map[string]any{"frequency": 2}

	src := testObservation("o2", 2, "s2", "s1")
	src.Status = StatusPending
	src.FirstSeen = dst.FirstSeen.Add(-24 * time.Hour)
	src.LastSeen = dst.LastSeen.Add(time.Hour)
	src.Tags = []string{"tool"}
	src.Metadata = map[string]any{"frequency": 5, "sequenceLength": 3}

	MergeObservation(&dst, src)

	if dst.Count != 5 {
		t.Errorf("expected count 5, got %d", dst.Count)
	}
	if len(dst.SourceSessionIDs) != 2 {
		t.Errorf("expected session union [s1 s2], got %v", dst.SourceSessionIDs)
	}
	if !dst.FirstSeen.Equal(src.FirstSeen) {
		t.Error("firstSeen should widen to the earlier time")
	}
	if !dst.LastSeen.Equal(src.LastSeen) {
		t.Error("lastSeen should widen to the later time")
	}
	if dst.Status != StatusApproved {
		t.Errorf("status should stay unchanged, got %q", dst.Status)
	}
	if dst.Metadata["frequency"] != 2 {
		t.Errorf("existing metadata keys should win, got %v", dst.Metadata["frequency"])
	}
	if dst.Metadata["sequenceLength"] != 3 {
		t.Error("new metadata keys should be added")
	}
	if len(dst.Tags) != 1 || dst.Tags[0] != "tool" {
		t.Errorf("tags should union, got %v", dst.Tags)
	}
}
