package models

import "time"

// AgentDescriptor is an immutable agent definition loaded once from configuration.
type AgentDescriptor struct {
	Name            string          `json:"name" yaml:"name"`
	Model           string          `json:"model" yaml:"model"`
	Provider        string          `json:"provider,omitempty" yaml:"provider,omitempty"`
	Temperature     float64         `json:"temperature" yaml:"temperature"`
	SystemPrompt    string          `json:"system_prompt" yaml:"system_prompt"`
	Tools           []string        `json:"tools,omitempty" yaml:"tools,omitempty"`
	Timeout         time.Duration   `json:"-" yaml:"-"`
	MaxTokens       int             `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	ReasoningEffort ReasoningEffort `json:"reasoning_effort,omitempty" yaml:"reasoning_effort,omitempty"`
}

// HasTool reports whether the agent declares the named tool.
func (a AgentDescriptor) HasTool(name string) bool {
	for _, t := range a.Tools {
		if t == name {
			return true
		}
	}
	return false
}
