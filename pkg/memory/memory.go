// Package memory formats conversation history for injection into the first
// agent turn of a run.
package memory

import (
	"strings"

	"github.com/maestro-ai/maestro/pkg/models"
)

// DefaultRecentMessages is how many trailing messages are injected.
const DefaultRecentMessages = 10

// InjectHistory prepends the formatted recent history to the current task.
// With no prior messages the task is returned untouched. The format is fixed:
//
//	Previous conversation:
//	USER: ...
//	ASSISTANT: ...
//
//	User's current message: <task>
func InjectHistory(messages []models.Message, task string) string {
	if len(messages) == 0 {
		return task
	}

	var sb strings.Builder
	sb.WriteString("Previous conversation:\n")
	for _, m := range messages {
		sb.WriteString(roleLabel(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\nUser's current message: ")
	sb.WriteString(task)
	return sb.String()
}

// Recent returns the trailing n messages. n <= 0 uses the default.
func Recent(messages []models.Message, n int) []models.Message {
	if n <= 0 {
		n = DefaultRecentMessages
	}
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

// HasAssistantTurn reports whether any message is an assistant reply. The
// supervisor uses it to gate the fast path on multi-turn conversations.
func HasAssistantTurn(messages []models.Message) bool {
	for _, m := range messages {
		if m.Role == models.RoleAssistant {
			return true
		}
	}
	return false
}

func roleLabel(r models.Role) string {
	return strings.ToUpper(string(r))
}
