package toolchain

import (
	"testing"

	"github.com/rcliao/session-insight/internal/session"
)

func TestFromMessages(t *testing.T) {
	messages := []session.Message{
		{Role: "user", Content: "fix it"},
		{Role: "assistant", ToolUses: []session.ToolUse{{Name: "read"}, {Name: "edit"}}},
		{Role: "user", Content: "thanks"},
		{Role: "assistant", ToolUses: []session.ToolUse{{Name: "bash"}}},
	}

	chain := FromMessages(messages)
	want := []string{"read", "edit", "bash"}
	if len(chain) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(chain))
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], chain[i])
		}
	}
}

func TestFromMessages_MissingNameGetsPlaceholder(t *testing.T) {
	messages := []session.Message{
		{Role: "assistant", ToolUses: []session.ToolUse{{Name: "read"}, {}, {Name: "bash"}}},
	}

	chain := FromMessages(messages)
	if len(chain) != 3 {
		t.Fatalf("expected nameless entry to keep its position, got %d names", len(chain))
	}
	if chain[1] != PlaceholderName {
		t.Errorf("expected placeholder, got %q", chain[1])
	}
}

func TestFromMessages_Empty(t *testing.T) {
	if chain := FromMessages(nil); len(chain) != 0 {
		t.Errorf("expected empty chain, got %v", chain)
	}
	if chain := FromMessages([]session.Message{{Role: "user", Content: "hi"}}); len(chain) != 0 {
		t.Errorf("expected empty chain for tool-less messages, got %v", chain)
	}
}
