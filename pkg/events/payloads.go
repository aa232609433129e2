package events

import (
	"github.com/maestro-ai/maestro/pkg/models"
)

// WorkflowStatus reports lifecycle milestones.
type WorkflowStatus struct {
	Base
	State      string `json:"state"` // IN_PROGRESS, FAILED
	WorkflowID string `json:"workflow_id"`
	Message    string `json:"message,omitempty"`
}

// NewWorkflowStatus builds a WORKFLOW_STATUS event.
func NewWorkflowStatus(runID, state, message string) *WorkflowStatus {
	return &WorkflowStatus{
		Base:       newBase(TypeWorkflowStatus),
		State:      state,
		WorkflowID: runID,
		Message:    message,
	}
}

// OrchestratorMessage narrates one phase of the pipeline.
type OrchestratorMessage struct {
	Base
	Kind   string `json:"kind"`   // analysis, routing, progress, quality, request
	Status string `json:"status"` // started, completed, cached, fallback
	Data   any    `json:"data,omitempty"`
}

// NewOrchestratorMessage builds an ORCHESTRATOR_MESSAGE event.
func NewOrchestratorMessage(kind, status string, data any) *OrchestratorMessage {
	return &OrchestratorMessage{
		Base:   newBase(TypeOrchestratorMessage),
		Kind:   kind,
		Status: status,
		Data:   data,
	}
}

// ReasoningCompleted carries the final reasoning trace. At most one per run.
type ReasoningCompleted struct {
	Base
	Reasoning string `json:"reasoning"`
	AgentID   string `json:"agent_id,omitempty"`
}

// NewReasoningCompleted builds a REASONING_COMPLETED event.
func NewReasoningCompleted(reasoning, agentID string) *ReasoningCompleted {
	return &ReasoningCompleted{
		Base:      newBase(TypeReasoningCompleted),
		Reasoning: reasoning,
		AgentID:   agentID,
	}
}

// AgentStarted opens an agent turn frame.
type AgentStarted struct {
	Base
	AgentID string `json:"agent_id"`
	Subtask string `json:"subtask"`
}

// NewAgentStarted builds an AGENT_STARTED event.
func NewAgentStarted(agentID, subtask string) *AgentStarted {
	return &AgentStarted{
		Base:    newBase(TypeAgentStarted),
		AgentID: agentID,
		Subtask: subtask,
	}
}

// AgentCompleted closes an agent turn frame.
type AgentCompleted struct {
	Base
	AgentID    string `json:"agent_id"`
	Subtask    string `json:"subtask,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Failed     bool   `json:"failed,omitempty"`
}

// NewAgentCompleted builds an AGENT_COMPLETED event.
func NewAgentCompleted(agentID, subtask string, durationMs int64, failed bool) *AgentCompleted {
	return &AgentCompleted{
		Base:       newBase(TypeAgentCompleted),
		AgentID:    agentID,
		Subtask:    subtask,
		DurationMs: durationMs,
		Failed:     failed,
	}
}

// AgentDelta is one streamed text chunk. Accumulated is global across agents;
// AgentAccumulated is the emitting agent's running text.
type AgentDelta struct {
	Base
	AgentID          string `json:"agent_id"`
	Delta            string `json:"delta"`
	Accumulated      string `json:"accumulated"`
	AgentAccumulated string `json:"agent_accumulated"`
}

// NewAgentDelta builds an AGENT_DELTA event.
func NewAgentDelta(agentID, delta, accumulated, agentAccumulated string) *AgentDelta {
	return &AgentDelta{
		Base:             newBase(TypeAgentDelta),
		AgentID:          agentID,
		Delta:            delta,
		Accumulated:      accumulated,
		AgentAccumulated: agentAccumulated,
	}
}

// ToolCall records one tool invocation made by an agent.
type ToolCall struct {
	Base
	AgentID       string         `json:"agent_id"`
	ToolName      string         `json:"tool_name"`
	Input         map[string]any `json:"input,omitempty"`
	OutputSummary string         `json:"output_summary,omitempty"`
	DurationMs    int64          `json:"duration_ms"`
	Failed        bool           `json:"failed,omitempty"`
}

// NewToolCall builds a TOOL_CALL event.
func NewToolCall(agentID string, rec models.ToolCallRecord) *ToolCall {
	return &ToolCall{
		Base:          newBase(TypeToolCall),
		AgentID:       agentID,
		ToolName:      rec.Tool,
		Input:         rec.Input,
		OutputSummary: rec.OutputSummary,
		DurationMs:    rec.DurationMs,
		Failed:        rec.Err != "",
	}
}

// Quality carries the quality-phase verdict.
type Quality struct {
	Base
	models.QualityVerdict
}

// NewQuality builds a QUALITY event.
func NewQuality(v models.QualityVerdict) *Quality {
	return &Quality{Base: newBase(TypeQuality), QualityVerdict: v}
}

// Request is a human-in-the-loop request awaiting a client response.
type Request struct {
	Base
	RequestID string         `json:"request_id"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewRequest builds a REQUEST event.
func NewRequest(requestID, kind string, payload map[string]any) *Request {
	return &Request{
		Base:      newBase(TypeRequest),
		RequestID: requestID,
		Kind:      kind,
		Payload:   payload,
	}
}

// WorkflowOutput is the terminal success event.
type WorkflowOutput struct {
	Base
	RunID     string                 `json:"run_id"`
	Result    string                 `json:"result"`
	Quality   *models.QualityVerdict `json:"quality,omitempty"`
	Durations models.PhaseDurations  `json:"durations"`
	Usage     models.TokenUsage      `json:"usage"`
}

// NewWorkflowOutput builds the terminal WORKFLOW_OUTPUT event.
func NewWorkflowOutput(r models.WorkflowResult) *WorkflowOutput {
	return &WorkflowOutput{
		Base:      newBase(TypeWorkflowOutput),
		RunID:     r.RunID,
		Result:    r.Result,
		Quality:   r.Quality,
		Durations: r.Durations,
		Usage:     r.Usage,
	}
}

// Error is the terminal failure event, including cancellation.
type Error struct {
	Base
	Code    models.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Phase   string           `json:"phase,omitempty"`
}

// NewError builds the terminal ERROR event. Message must be display-safe.
func NewError(code models.ErrorCode, message, phase string) *Error {
	return &Error{
		Base:    newBase(TypeError),
		Code:    code,
		Message: message,
		Phase:   phase,
	}
}
