package events

import "github.com/maestro-ai/maestro/pkg/models"

// Client frame types accepted on the WebSocket inbound side.
const (
	ClientTask     = "task"
	ClientResponse = "response"
	ClientResume   = "resume"
	ClientPing     = "ping"
	ClientCancel   = "cancel"
)

// Server control frame types outside the stream event set.
const (
	ServerConnected = "connected"
	ServerPong      = "pong"
	ServerError     = "error"
)

// ClientMessage is the single inbound frame shape; Type selects which fields
// are meaningful.
type ClientMessage struct {
	Type string `json:"type"`

	// task
	Message             string                 `json:"message,omitempty"`
	ConversationID      string                 `json:"conversationId,omitempty"`
	ReasoningEffort     models.ReasoningEffort `json:"reasoningEffort,omitempty"`
	EnableCheckpointing bool                   `json:"enableCheckpointing,omitempty"`

	// response
	RequestID string         `json:"requestId,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`

	// resume
	CheckpointID string `json:"checkpointId,omitempty"`
}

// Validate enforces the per-type field contract. A task frame must not carry
// a checkpoint id, and a resume frame must not carry a message.
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case ClientTask:
		if m.Message == "" {
			return models.NewInvalidInput("task frame requires a message")
		}
		if m.CheckpointID != "" {
			return models.NewInvalidInput("task frame must not include checkpointId")
		}
	case ClientResponse:
		if m.RequestID == "" {
			return models.NewInvalidInput("response frame requires requestId")
		}
	case ClientResume:
		if m.CheckpointID == "" {
			return models.NewInvalidInput("resume frame requires checkpointId")
		}
		if m.Message != "" {
			return models.NewInvalidInput("resume frame must not include a message")
		}
	case ClientPing, ClientCancel:
		// no fields
	default:
		return models.NewInvalidInput("unknown frame type: " + m.Type)
	}
	return nil
}

// ControlFrame is a non-stream server frame (connected, pong).
type ControlFrame struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}
