// Package toolchain flattens a session's message stream into the ordered
// sequence of tool-invocation names.
package toolchain

import "github.com/rcliao/session-insight/internal/session"

// PlaceholderName stands in for tool uses whose name is missing from the
// transcript, so malformed entries keep their position instead of breaking
// the chain.
const PlaceholderName = "unknown"

// FromMessages visits messages in order and appends every tool use's name in
// the order listed on each message. Messages without tool uses contribute
// nothing. Pure function of the input.
func FromMessages(messages []session.Message) []string {
	var chain []string
	for _, msg := range messages {
		for _, tu := range msg.ToolUses {
			name := tu.Name
			if name == "" {
				name = PlaceholderName
			}
			chain = append(chain, name)
		}
	}
	return chain
}
