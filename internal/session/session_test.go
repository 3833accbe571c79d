package session

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTranscript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestLoadSession(t *testing.T) {
	content := `{"role":"user","content":"fix the bug"}
{"role":"assistant","content":"on it","toolUses":[{"id":"t1","name":"read"},{"id":"t2","name":"edit","success":true}]}
{"role":"assistant","content":"done","toolUses":[{"id":"t3","name":"bash","success":false,"result":"exit 1"}]}
`
	path := writeTranscript(t, t.TempDir(), "sess-abc.jsonl", content)

	s, err := LoadSession(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ID != "sess-abc" {
		t.Errorf("expected id from file name, got %q", s.ID)
	}
	if s.MessageCount != 3 {
		t.Fatalf("expected 3 messages, got %d", s.MessageCount)
	}
	if len(s.Messages[1].ToolUses) != 2 {
		t.Errorf("expected 2 tool uses on second message, got %d", len(s.Messages[1].ToolUses))
	}
	if s.Messages[2].ToolUses[0].Succeeded() {
		t.Error("expected recorded failure to report unsuccessful")
	}
	if !s.Messages[1].ToolUses[0].Succeeded() {
		t.Error("expected missing success to default to succeeded")
	}
}

func TestLoadSession_SkipsMalformedLines(t *testing.T) {
	content := `{"role":"user","content":"hello"}
this line is not json
{"role":"assistant","content":"hi","toolUses":[{"name":"read"}]}

`
	path := writeTranscript(t, t.TempDir(), "s.jsonl", content)

	s, err := LoadSession(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.MessageCount != 2 {
		t.Errorf("expected malformed line to be skipped, got %d messages", s.MessageCount)
	}
}

func TestLoadSession_Missing(t *testing.T) {
	if _, err := LoadSession(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Error("expected error for missing transcript")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeTranscript(t, dir, "b.jsonl", `{"role":"user","content":"x"}`+"\n")
	writeTranscript(t, dir, "a.jsonl", `{"role":"user","content":"y"}`+"\n")
	writeTranscript(t, dir, "notes.txt", "not a transcript")

	sessions, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "a" || sessions[1].ID != "b" {
		t.Errorf("expected name-sorted order [a b], got [%s %s]", sessions[0].ID, sessions[1].ID)
	}
}
