package models

import "time"

// PendingRequest is a HITL request captured in a checkpoint.
type PendingRequest struct {
	RequestID string         `json:"request_id"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
}

// Checkpoint captures enough run state at a HITL boundary to resume: the
// original task, the routing decision in force, outputs produced so far, and
// the request the run is suspended on. Checkpoints are content-addressed by
// the store.
type Checkpoint struct {
	ID             string            `json:"id,omitempty"`
	RunID          string            `json:"run_id"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Task           Task              `json:"task"`
	Routing        RoutingDecision   `json:"routing"`
	Outputs        map[string]string `json:"outputs,omitempty"`
	Pending        PendingRequest    `json:"pending"`
	CreatedAt      time.Time         `json:"created_at"`
}
