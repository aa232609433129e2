package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maestro-ai/maestro/pkg/models"
)

func TestInjectHistoryEmpty(t *testing.T) {
	assert.Equal(t, "hello", InjectHistory(nil, "hello"))
	assert.Equal(t, "hello", InjectHistory([]models.Message{}, "hello"))
}

func TestInjectHistoryFormat(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "What is the Monty Hall problem?"},
		{Role: models.RoleAssistant, Content: "A probability puzzle about three doors."},
	}
	task := "Why should I switch? Isn't it 50-50 after the host reveals a goat?"

	got := InjectHistory(messages, task)
	want := "Previous conversation:\n" +
		"USER: What is the Monty Hall problem?\n" +
		"ASSISTANT: A probability puzzle about three doors.\n" +
		"\nUser's current message: " + task
	assert.Equal(t, want, got)
}

func TestRecent(t *testing.T) {
	var messages []models.Message
	for i := range 15 {
		messages = append(messages, models.Message{Content: fmt.Sprintf("m%d", i)})
	}

	got := Recent(messages, 10)
	assert.Len(t, got, 10)
	assert.Equal(t, "m5", got[0].Content)
	assert.Equal(t, "m14", got[9].Content)

	// Default window.
	assert.Len(t, Recent(messages, 0), DefaultRecentMessages)

	// Fewer messages than the window.
	short := messages[:3]
	assert.Equal(t, short, Recent(short, 10))
}

func TestHasAssistantTurn(t *testing.T) {
	assert.False(t, HasAssistantTurn(nil))
	assert.False(t, HasAssistantTurn([]models.Message{{Role: models.RoleUser, Content: "hi"}}))
	assert.True(t, HasAssistantTurn([]models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}))
}
