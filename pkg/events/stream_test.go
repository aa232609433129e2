package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/models"
)

func TestStreamOrdering(t *testing.T) {
	s := NewStream("run-1", 16)

	s.Publish(NewAgentStarted("writer", "draft"))
	s.Publish(NewAgentDelta("writer", "he", "he", "he"))
	s.Publish(NewAgentDelta("writer", "llo", "hello", "hello"))
	s.Publish(NewAgentCompleted("writer", "draft", 0, false))
	s.Publish(NewWorkflowOutput(models.WorkflowResult{RunID: "run-1", Result: "hello"}))

	var got []EventType
	for e := range s.Events() {
		got = append(got, e.EventType())
	}
	assert.Equal(t, []EventType{
		TypeAgentStarted,
		TypeAgentDelta,
		TypeAgentDelta,
		TypeAgentCompleted,
		TypeWorkflowOutput,
	}, got)
}

func TestStreamTerminalLatch(t *testing.T) {
	s := NewStream("run-2", 16)

	ok := s.Publish(NewError(models.CodeCancelled, "run cancelled", "execution"))
	require.True(t, ok)
	assert.True(t, s.Latched())

	// Anything after the terminal event is dropped.
	assert.False(t, s.Publish(NewAgentDelta("writer", "x", "x", "x")))
	assert.False(t, s.Publish(NewWorkflowOutput(models.WorkflowResult{RunID: "run-2"})))

	var got []EventType
	for e := range s.Events() {
		got = append(got, e.EventType())
	}
	assert.Equal(t, []EventType{TypeError}, got)
}

func TestStreamAbandon(t *testing.T) {
	s := NewStream("run-3", 4)
	s.Publish(NewAgentStarted("writer", "draft"))
	s.Abandon()
	s.Abandon() // idempotent

	assert.False(t, s.Publish(NewAgentDelta("writer", "x", "x", "x")))

	count := 0
	for range s.Events() {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestEventCategories(t *testing.T) {
	tests := []struct {
		event Event
		want  Category
	}{
		{NewWorkflowStatus("r", StateInProgress, ""), CategoryLifecycle},
		{NewOrchestratorMessage(KindAnalysis, StatusStarted, nil), CategoryNarration},
		{NewReasoningCompleted("trace", ""), CategoryNarration},
		{NewAgentStarted("a", "s"), CategoryAgent},
		{NewAgentDelta("a", "d", "d", "d"), CategoryAgent},
		{NewAgentCompleted("a", "s", 0, false), CategoryAgent},
		{NewToolCall("a", models.ToolCallRecord{Tool: "tavily_search"}), CategoryTool},
		{NewQuality(models.QualityVerdict{Score: 8}), CategoryQuality},
		{NewRequest("r1", "approval", nil), CategoryInteraction},
		{NewWorkflowOutput(models.WorkflowResult{}), CategoryTerminal},
		{NewError(models.CodeInternal, "boom", ""), CategoryTerminal},
	}
	for _, tt := range tests {
		t.Run(string(tt.event.EventType()), func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryOf(tt.event.EventType()))
		})
	}
}

func TestTerminalFlag(t *testing.T) {
	assert.True(t, NewWorkflowOutput(models.WorkflowResult{}).Terminal())
	assert.True(t, NewError(models.CodeTimeout, "t", "").Terminal())
	assert.False(t, NewAgentStarted("a", "s").Terminal())
	assert.False(t, NewQuality(models.QualityVerdict{}).Terminal())
}
