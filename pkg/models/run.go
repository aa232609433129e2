package models

import "time"

// RunStatus tracks a run through its lifecycle. Terminal states latch.
type RunStatus string

const (
	RunPending       RunStatus = "pending"
	RunRunning       RunStatus = "running"
	RunNeedsResponse RunStatus = "needs_response"
	RunCancelled     RunStatus = "cancelled"
	RunSucceeded     RunStatus = "succeeded"
	RunFailed        RunStatus = "failed"
)

// Terminal reports whether s is a latched terminal status.
func (s RunStatus) Terminal() bool {
	return s == RunCancelled || s == RunSucceeded || s == RunFailed
}

// TokenUsage is cumulative token accounting for one agent turn or a whole run.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates u2 into u.
func (u *TokenUsage) Add(u2 TokenUsage) {
	u.InputTokens += u2.InputTokens
	u.OutputTokens += u2.OutputTokens
	u.TotalTokens += u2.TotalTokens
}

// ToolCallRecord captures one tool invocation made during an agent turn.
type ToolCallRecord struct {
	Tool          string         `json:"tool"`
	Input         map[string]any `json:"input,omitempty"`
	OutputSummary string         `json:"output_summary,omitempty"`
	DurationMs    int64          `json:"duration_ms"`
	Err           string         `json:"error,omitempty"`
}

// PerAgentResult is the outcome of a single agent turn.
type PerAgentResult struct {
	AgentID    string           `json:"agent_id"`
	Output     string           `json:"output"`
	Reasoning  string           `json:"reasoning,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	Usage      TokenUsage       `json:"usage"`
	ToolCalls  []ToolCallRecord `json:"tool_calls,omitempty"`
	Err        error            `json:"-"`
}

// ExecutionResult is what a strategy hands back to the supervisor.
// AgentOrder preserves launch order; Outputs is keyed by agent name.
type ExecutionResult struct {
	Outputs    map[string]string         `json:"outputs"`
	AgentOrder []string                  `json:"agent_order"`
	PerAgent   map[string]PerAgentResult `json:"per_agent"`
	FinalText  string                    `json:"final_text"`
	Missing    []string                  `json:"missing,omitempty"`
}

// PhaseDurations records wall-clock time spent per supervisor phase, in
// integer milliseconds as serialized.
type PhaseDurations struct {
	Analysis  int64 `json:"analysis_ms"`
	Routing   int64 `json:"routing_ms"`
	Execution int64 `json:"execution_ms"`
	Progress  int64 `json:"progress_ms"`
	Quality   int64 `json:"quality_ms"`
	Total     int64 `json:"total_ms"`
}

// RunRecord is the append-only audit row written to the history sink.
// TaskPreview is redacted unless sensitive data is enabled.
type RunRecord struct {
	RunID       string           `json:"run_id"`
	TaskPreview string           `json:"task_preview"`
	Status      RunStatus        `json:"status"`
	Routing     *RoutingDecision `json:"routing,omitempty"`
	Quality     *QualityVerdict  `json:"quality,omitempty"`
	Durations   PhaseDurations   `json:"durations"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// WorkflowResult is the terminal payload of a successful run.
type WorkflowResult struct {
	RunID     string          `json:"run_id"`
	Result    string          `json:"result"`
	Reasoning string          `json:"reasoning,omitempty"`
	Quality   *QualityVerdict `json:"quality,omitempty"`
	Durations PhaseDurations  `json:"durations"`
	Usage     TokenUsage      `json:"usage"`
}
