package models

import (
	"strings"
	"time"
)

// DefaultMaxTaskLength bounds accepted task text when the config does not override it.
const DefaultMaxTaskLength = 10000

// ReasoningEffort hints how much deliberation the run should spend.
type ReasoningEffort string

const (
	EffortLow    ReasoningEffort = "low"
	EffortMedium ReasoningEffort = "medium"
	EffortHigh   ReasoningEffort = "high"
)

// Task is the immutable per-run input.
type Task struct {
	Text            string          `json:"text"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	ConversationID  string          `json:"conversation_id,omitempty"`
	ReasoningEffort ReasoningEffort `json:"reasoning_effort,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// NewTask validates and normalizes raw task text. maxLength <= 0 means the default bound.
func NewTask(text string, maxLength int) (Task, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxTaskLength
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Task{}, NewInvalidInput("task text is empty")
	}
	if len(trimmed) > maxLength {
		return Task{}, NewInvalidInput("task text exceeds maximum length")
	}
	return Task{
		Text:        trimmed,
		SubmittedAt: time.Now().UTC(),
	}, nil
}
