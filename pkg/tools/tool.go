// Package tools holds the process-wide tool registry: descriptors registered
// once at startup, capability lookup for routing, and a uniform invocation
// wrapper (schema validation, timeout, optional result caching).
package tools

import (
	"context"
	"fmt"
	"time"
)

// LatencyHint classifies a tool's expected latency for routing.
type LatencyHint string

const (
	LatencyLow    LatencyHint = "low"
	LatencyMedium LatencyHint = "medium"
	LatencyHigh   LatencyHint = "high"
)

// DefaultInvokeTimeout bounds a single tool invocation unless the descriptor
// overrides it.
const DefaultInvokeTimeout = 30 * time.Second

// Result is what an invoker returns. Content is the text handed back to the
// agent; Data carries structured output for callers that want it.
type Result struct {
	Content string         `json:"content"`
	Data    map[string]any `json:"data,omitempty"`
}

// Invoker executes a tool call. Implementations may block; the registry
// wraps every call with the descriptor's timeout.
type Invoker interface {
	Invoke(ctx context.Context, input map[string]any) (Result, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, input map[string]any) (Result, error)

func (f InvokerFunc) Invoke(ctx context.Context, input map[string]any) (Result, error) {
	return f(ctx, input)
}

// Descriptor declares a tool at registration time. Schema is the raw JSON
// Schema for the input object; it is compiled once during Register.
type Descriptor struct {
	Name         string
	Description  string
	Aliases      []string
	Capabilities []string
	Invoker      Invoker
	LatencyHint  LatencyHint
	ResultTTL    time.Duration
	Timeout      time.Duration
	Schema       []byte
}

// Info is the minimal projection handed to the reasoner for routing.
type Info struct {
	Name         string      `json:"name"`
	Capabilities []string    `json:"capabilities"`
	LatencyHint  LatencyHint `json:"latency_hint"`
	ResultTTLMs  int64       `json:"result_ttl_ms,omitempty"`
}

// Declaration is the function-calling projection of a tool: what an LLM
// provider needs to offer the tool to a model.
type Declaration struct {
	Name        string
	Description string
	Schema      []byte
}

// Suspension signals that a tool needs human input before it can finish.
// The agent runner emits a REQUEST event and blocks until the client responds;
// the invoker is then retried with the response merged into its input.
type Suspension struct {
	Kind    string
	Payload map[string]any
}

func (s *Suspension) Error() string {
	return fmt.Sprintf("tool suspended awaiting %s response", s.Kind)
}

// Suspend builds a Suspension error for invokers.
func Suspend(kind string, payload map[string]any) error {
	return &Suspension{Kind: kind, Payload: payload}
}
