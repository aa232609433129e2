// Package strategy implements the execution topologies over the agent
// runner: delegated (one agent), sequential (pipeline with carried context),
// and parallel (fan-out plus synthesis). Handoff and discussion modes are
// normalized before execution: handoff runs as sequential, discussion as
// parallel.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/maestro-ai/maestro/pkg/agent"
	"github.com/maestro-ai/maestro/pkg/models"
)

// Plan is everything a strategy needs for one execution phase.
type Plan struct {
	RunID    string
	Task     models.Task
	Decision models.RoutingDecision

	// Agents resolves assigned names to descriptors.
	Agents map[string]models.AgentDescriptor

	// History is injected into first agent turns.
	History []models.Message

	// PriorOutputs carries outputs restored from a checkpoint; agents listed
	// here are not re-run. PriorResponse answers the first suspension of the
	// resumed run.
	PriorOutputs  map[string]string
	PriorResponse map[string]any
	PriorRequest  string
}

// Strategy executes one routing decision. Implementations return an error
// only when the whole phase fails (abort, cancellation, or no usable
// output); per-agent failures that the strategy tolerates are carried in the
// result.
type Strategy interface {
	Execute(ctx context.Context, plan Plan, pub agent.Publisher, acc *agent.Accumulator) (models.ExecutionResult, error)
}

// Select returns the strategy for a routing mode. Handoff and discussion are
// accepted and normalized here as a safety net; the reasoner façade already
// rewrites them.
func Select(mode models.RoutingMode, runner *agent.Runner, maxParallel int, synthesisAgent string) (Strategy, error) {
	switch mode {
	case models.ModeDelegated:
		return &Delegated{Runner: runner}, nil
	case models.ModeSequential, models.ModeHandoff:
		return &Sequential{Runner: runner}, nil
	case models.ModeParallel, models.ModeDiscussion:
		return &Parallel{Runner: runner, MaxParallel: maxParallel, SynthesisAgent: synthesisAgent}, nil
	default:
		return nil, fmt.Errorf("no strategy for routing mode %q", mode)
	}
}

// Delegated runs assigned[0] once; the final output is that agent's output.
type Delegated struct {
	Runner *agent.Runner
}

// Execute implements Strategy.
func (s *Delegated) Execute(ctx context.Context, plan Plan, pub agent.Publisher, acc *agent.Accumulator) (models.ExecutionResult, error) {
	name := plan.Decision.Assigned[0]
	desc, ok := plan.Agents[name]
	if !ok {
		return models.ExecutionResult{}, fmt.Errorf("assigned agent %q is not configured", name)
	}

	result := newExecutionResult(plan.Decision.Assigned)
	if out, done := plan.PriorOutputs[name]; done {
		result.Outputs[name] = out
		result.FinalText = out
		result.PerAgent[name] = models.PerAgentResult{AgentID: name, Output: out}
		return result, nil
	}

	par := s.Runner.Run(ctx, agent.Turn{
		RunID:         plan.RunID,
		Agent:         desc,
		Subtask:       plan.Decision.SubtaskFor(0, plan.Task.Text),
		History:       plan.History,
		PriorResponse: plan.PriorResponse,
		PriorRequest:  plan.PriorRequest,
	}, pub, acc)

	result.PerAgent[name] = par
	if par.Err != nil {
		return result, par.Err
	}
	result.Outputs[name] = par.Output
	result.FinalText = par.Output
	return result, nil
}

// Sequential iterates assigned in order; each agent receives the prior
// agents' outputs as context. Any agent failure aborts the sequence.
type Sequential struct {
	Runner *agent.Runner
}

// Execute implements Strategy.
func (s *Sequential) Execute(ctx context.Context, plan Plan, pub agent.Publisher, acc *agent.Accumulator) (models.ExecutionResult, error) {
	result := newExecutionResult(plan.Decision.Assigned)

	for i, name := range plan.Decision.Assigned {
		if err := ctx.Err(); err != nil {
			return result, models.ErrCancelled
		}

		desc, ok := plan.Agents[name]
		if !ok {
			return result, fmt.Errorf("assigned agent %q is not configured", name)
		}

		if out, done := plan.PriorOutputs[name]; done {
			result.Outputs[name] = out
			result.FinalText = out
			result.PerAgent[name] = models.PerAgentResult{AgentID: name, Output: out}
			continue
		}

		subtask := plan.Decision.SubtaskFor(i, plan.Task.Text)
		if prior := priorContext(result, plan.Decision.Assigned[:i]); prior != "" {
			subtask = prior + "\n\nYour task: " + subtask
		}

		turn := agent.Turn{
			RunID:         plan.RunID,
			Agent:         desc,
			Subtask:       subtask,
			PriorResponse: plan.PriorResponse,
			PriorRequest:  plan.PriorRequest,
		}
		if i == 0 {
			turn.History = plan.History
		}

		par := s.Runner.Run(ctx, turn, pub, acc)
		result.PerAgent[name] = par
		if par.Err != nil {
			return result, par.Err
		}
		result.Outputs[name] = par.Output
		result.FinalText = par.Output
	}
	return result, nil
}

// priorContext formats completed outputs for the next agent in a sequence.
func priorContext(result models.ExecutionResult, completed []string) string {
	if len(completed) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Context from previous agents:")
	for _, name := range completed {
		out, ok := result.Outputs[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "\n\n## %s\n%s", name, out)
	}
	return sb.String()
}

func newExecutionResult(assigned []string) models.ExecutionResult {
	order := make([]string, len(assigned))
	copy(order, assigned)
	return models.ExecutionResult{
		Outputs:    make(map[string]string, len(assigned)),
		AgentOrder: order,
		PerAgent:   make(map[string]models.PerAgentResult, len(assigned)),
	}
}
