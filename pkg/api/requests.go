package api

import "github.com/maestro-ai/maestro/pkg/models"

// streamRequest is the POST /api/v1/stream body. Message and CheckpointID are
// mutually exclusive, mirroring the WebSocket task/resume frames.
type streamRequest struct {
	Message             string                 `json:"message"`
	ConversationID      string                 `json:"conversationId,omitempty"`
	ReasoningEffort     models.ReasoningEffort `json:"reasoningEffort,omitempty"`
	EnableCheckpointing bool                   `json:"enableCheckpointing,omitempty"`
	CheckpointID        string                 `json:"checkpointId,omitempty"`
}

// respondRequest is the POST /api/v1/runs/:id/respond body.
type respondRequest struct {
	RequestID string         `json:"requestId"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// createConversationRequest is the POST /api/v1/conversations body.
type createConversationRequest struct {
	Title string `json:"title,omitempty"`
}
