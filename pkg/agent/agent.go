// Package agent runs a single agent turn: it builds the conversation for a
// subtask, streams the model's response as AGENT_DELTA events, executes tool
// calls through the registry, and hands back a PerAgentResult. Strategies
// compose turns; the runner knows nothing about routing or phases.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maestro-ai/maestro/pkg/events"
	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/memory"
	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/tools"
)

// DefaultMaxIterations bounds the tool-calling loop of one agent turn.
const DefaultMaxIterations = 6

// Publisher receives run events. A nil publisher runs the turn silently.
// events.Stream satisfies this.
type Publisher interface {
	Publish(e events.Event) bool
}

// Responder resolves human-in-the-loop requests. Await blocks until the
// client responds or ctx is done; the returned payload is merged into the
// suspended tool's input before the retry.
type Responder interface {
	Await(ctx context.Context, req models.PendingRequest) (map[string]any, error)
}

// Turn is one agent assignment within a run.
type Turn struct {
	RunID   string
	Agent   models.AgentDescriptor
	Subtask string

	// History is injected into the first user message when non-empty.
	History []models.Message

	// PriorResponse resolves a pending request captured in a checkpoint:
	// the first matching suspension is answered from it without blocking.
	PriorResponse map[string]any
	PriorRequest  string
}

// Runner executes agent turns. Safe for concurrent use.
type Runner struct {
	llms          *llm.Registry
	tools         *tools.Registry
	responder     Responder
	maxIterations int
}

// NewRunner wires the runner. responder may be nil; suspensions then fail the
// tool call instead of blocking.
func NewRunner(llms *llm.Registry, registry *tools.Registry, responder Responder, maxIterations int) *Runner {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Runner{
		llms:          llms,
		tools:         registry,
		responder:     responder,
		maxIterations: maxIterations,
	}
}

// Run executes one turn. The result always comes back; failures are carried
// in PerAgentResult.Err so strategies can apply their partial-failure policy.
// Use errors.Is on the loop error (not ctx.Err()) so a concurrent context
// expiration doesn't misclassify an unrelated failure.
func (r *Runner) Run(ctx context.Context, turn Turn, pub Publisher, acc *Accumulator) models.PerAgentResult {
	publish(pub, events.NewAgentStarted(turn.Agent.Name, turn.Subtask))
	start := time.Now()

	turnCtx := ctx
	if turn.Agent.Timeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(ctx, turn.Agent.Timeout)
		defer cancel()
	}

	result := r.runLoop(turnCtx, turn, pub, acc)
	result.AgentID = turn.Agent.Name
	result.DurationMs = time.Since(start).Milliseconds()

	if result.Err != nil {
		switch {
		case errors.Is(result.Err, context.DeadlineExceeded):
			result.Err = &models.AgentError{AgentID: turn.Agent.Name, Err: fmt.Errorf("%w: %v", models.ErrTimeout, result.Err)}
		case errors.Is(result.Err, context.Canceled):
			result.Err = &models.AgentError{AgentID: turn.Agent.Name, Err: models.ErrCancelled}
		default:
			result.Err = &models.AgentError{AgentID: turn.Agent.Name, Err: result.Err}
		}
	}

	publish(pub, events.NewAgentCompleted(turn.Agent.Name, turn.Subtask, result.DurationMs, result.Err != nil))
	return result
}

// initialMessages builds the system + first user message for a turn.
func initialMessages(turn Turn) []llm.ConversationMessage {
	msgs := make([]llm.ConversationMessage, 0, 2)
	if turn.Agent.SystemPrompt != "" {
		msgs = append(msgs, llm.ConversationMessage{Role: llm.RoleSystem, Content: turn.Agent.SystemPrompt})
	}
	msgs = append(msgs, llm.ConversationMessage{
		Role:    llm.RoleUser,
		Content: memory.InjectHistory(turn.History, turn.Subtask),
	})
	return msgs
}

func publish(pub Publisher, e events.Event) {
	if pub != nil {
		pub.Publish(e)
	}
}
