// Package events defines the closed set of stream events a run emits and the
// per-run ordered stream the transports consume.
//
// Every run owns exactly one Stream. The supervisor and its strategies publish
// into it; a single transport (WebSocket or SSE) drains it. Events are totally
// ordered within a run, and the stream latches after the first terminal event
// (WORKFLOW_OUTPUT or ERROR): later publishes are dropped and logged, so a
// client can always treat the terminal event as final.
package events

import "time"

// EventType tags each stream event. The set is closed; transports reject
// anything else at the encoding boundary.
type EventType string

const (
	TypeWorkflowStatus      EventType = "WORKFLOW_STATUS"
	TypeOrchestratorMessage EventType = "ORCHESTRATOR_MESSAGE"
	TypeReasoningCompleted  EventType = "REASONING_COMPLETED"
	TypeAgentStarted        EventType = "AGENT_STARTED"
	TypeAgentCompleted      EventType = "AGENT_COMPLETED"
	TypeAgentDelta          EventType = "AGENT_DELTA"
	TypeToolCall            EventType = "TOOL_CALL"
	TypeQuality             EventType = "QUALITY"
	TypeRequest             EventType = "REQUEST"
	TypeWorkflowOutput      EventType = "WORKFLOW_OUTPUT"
	TypeError               EventType = "ERROR"
)

// Category groups event types for client-side routing.
type Category string

const (
	CategoryLifecycle   Category = "lifecycle"
	CategoryNarration   Category = "narration"
	CategoryAgent       Category = "agent"
	CategoryTool        Category = "tool"
	CategoryQuality     Category = "quality"
	CategoryInteraction Category = "interaction"
	CategoryTerminal    Category = "terminal"
)

// categories maps each event type to its fixed category.
var categories = map[EventType]Category{
	TypeWorkflowStatus:      CategoryLifecycle,
	TypeOrchestratorMessage: CategoryNarration,
	TypeReasoningCompleted:  CategoryNarration,
	TypeAgentStarted:        CategoryAgent,
	TypeAgentCompleted:      CategoryAgent,
	TypeAgentDelta:          CategoryAgent,
	TypeToolCall:            CategoryTool,
	TypeQuality:             CategoryQuality,
	TypeRequest:             CategoryInteraction,
	TypeWorkflowOutput:      CategoryTerminal,
	TypeError:               CategoryTerminal,
}

// CategoryOf returns the fixed category for t, empty for unknown types.
func CategoryOf(t EventType) Category { return categories[t] }

// Known reports whether t belongs to the closed event set.
func Known(t EventType) bool {
	_, ok := categories[t]
	return ok
}

// Event is one entry in a run's outbound stream.
type Event interface {
	EventType() EventType
	// Terminal reports whether the event latches the stream.
	Terminal() bool
}

// Base carries the fields every stream event shares. Embedded by each
// typed event so the wire form is flat.
type Base struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	UIHint    string    `json:"ui_hint,omitempty"`
}

func (b Base) EventType() EventType { return b.Type }

func (b Base) Terminal() bool {
	return b.Type == TypeWorkflowOutput || b.Type == TypeError
}

func newBase(t EventType) Base {
	return Base{
		Type:      t,
		Timestamp: time.Now().UTC(),
		Category:  categories[t],
	}
}

// Orchestrator message kinds (phase narration).
const (
	KindAnalysis = "analysis"
	KindRouting  = "routing"
	KindProgress = "progress"
	KindQuality  = "quality"
	KindRequest  = "request"
)

// Orchestrator message statuses.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusCached    = "cached"
	StatusFallback  = "fallback"
)

// Workflow lifecycle states carried by WORKFLOW_STATUS.
const (
	StateInProgress = "IN_PROGRESS"
	StateFailed     = "FAILED"
)
