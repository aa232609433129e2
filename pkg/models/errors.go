package models

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable machine-readable code carried by terminal ERROR events.
type ErrorCode string

const (
	CodeInvalidInput ErrorCode = "invalid_input"
	CodeTimeout      ErrorCode = "timeout"
	CodeCancelled    ErrorCode = "cancelled"
	CodeAgentFailure ErrorCode = "agent_failure"
	CodeInternal     ErrorCode = "internal"
)

// Sentinel errors raised by inner components; the supervisor maps them to codes.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnknownRequest      = errors.New("unknown request id")
	ErrRequestResolved     = errors.New("request already resolved")
	ErrReasonerUnavailable = errors.New("reasoner unavailable")
	ErrCancelled           = errors.New("run cancelled")
	ErrTimeout             = errors.New("deadline exceeded")
)

// InvalidInput reports a client mistake: empty or oversized task, conflicting
// start frame, unknown request id. Safe for display.
type InvalidInput struct {
	Reason string
}

func (e *InvalidInput) Error() string { return "invalid input: " + e.Reason }

// NewInvalidInput builds an InvalidInput with the given display-safe reason.
func NewInvalidInput(reason string) error { return &InvalidInput{Reason: reason} }

// IsInvalidInput reports whether err is an InvalidInput.
func IsInvalidInput(err error) bool {
	var ii *InvalidInput
	return errors.As(err, &ii)
}

// ToolError wraps a tool invocation failure. Never fatal to the run; the
// agent turn records it and continues.
type ToolError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Reason, e.Err)
	}
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Reason)
}

func (e *ToolError) Unwrap() error { return e.Err }

// AssertionError reports a reasoner output that violated a façade constraint.
type AssertionError struct {
	Op     string
	Reason string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("reasoner %s assertion failed: %s", e.Op, e.Reason)
}

// AgentError reports a failed agent turn after retries.
type AgentError struct {
	AgentID string
	Err     error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s failed: %v", e.AgentID, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// CodeFor maps an error to its taxonomy code.
func CodeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case IsInvalidInput(err):
		return CodeInvalidInput
	case errors.Is(err, ErrCancelled):
		return CodeCancelled
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	default:
		var ae *AgentError
		if errors.As(err, &ae) {
			return CodeAgentFailure
		}
		return CodeInternal
	}
}
