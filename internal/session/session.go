// Package session defines the session transcript types and the JSONL adapter
// that loads them from disk.
package session

import "time"

// Session is one recorded AI-assisted coding session.
type Session struct {
	ID           string    `json:"id"`
	Tool         string    `json:"tool,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	ModifiedAt   time.Time `json:"modifiedAt,omitempty"`
	Path         string    `json:"path,omitempty"`
	MessageCount int       `json:"messageCount"`
	Messages     []Message `json:"messages,omitempty"`
}

// Message is one turn in a session transcript.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	ToolUses  []ToolUse  `json:"toolUses,omitempty"`
}

// ToolUse is one tool invocation attached to a message. Result and Success
// are optional; absent Success means the invocation is assumed to have
// succeeded.
type ToolUse struct {
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"name"`
	Input   map[string]any `json:"input,omitempty"`
	Result  string         `json:"result,omitempty"`
	Success *bool          `json:"success,omitempty"`
}

// Succeeded reports whether the tool use succeeded, defaulting to true when
// the transcript did not record an outcome.
func (t ToolUse) Succeeded() bool {
	return t.Success == nil || *t.Success
}
