package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/maestro-ai/maestro/pkg/agent"
	"github.com/maestro-ai/maestro/pkg/models"
)

// DefaultMaxParallel caps fan-out when the plan does not say otherwise.
const DefaultMaxParallel = 4

// Parallel fans out all assigned agents concurrently and synthesizes their
// outputs with a final single-call turn by the synthesis agent. Assembly is
// deterministic by agent order, never by completion order.
type Parallel struct {
	Runner         *agent.Runner
	MaxParallel    int
	SynthesisAgent string
}

// Execute implements Strategy. Partial failures are tolerated: as long as one
// agent succeeds, the successes are synthesized and the failures noted in
// Missing. All agents failing (or cancellation) fails the phase.
func (s *Parallel) Execute(ctx context.Context, plan Plan, pub agent.Publisher, acc *agent.Accumulator) (models.ExecutionResult, error) {
	result := newExecutionResult(plan.Decision.Assigned)

	limit := s.MaxParallel
	if limit <= 0 {
		limit = DefaultMaxParallel
	}

	// Only one concurrent turn may consume the checkpointed response, so it
	// goes to the first agent that still has work to do.
	priorResponse := plan.PriorResponse
	priorRequest := plan.PriorRequest

	type slot struct {
		name string
		par  models.PerAgentResult
		done bool
	}
	slots := make([]slot, len(plan.Decision.Assigned))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, name := range plan.Decision.Assigned {
		desc, ok := plan.Agents[name]
		if !ok {
			return result, fmt.Errorf("assigned agent %q is not configured", name)
		}

		slots[i].name = name
		if out, done := plan.PriorOutputs[name]; done {
			slots[i].par = models.PerAgentResult{AgentID: name, Output: out}
			slots[i].done = true
			continue
		}

		turn := agent.Turn{
			RunID:         plan.RunID,
			Agent:         desc,
			Subtask:       plan.Decision.SubtaskFor(i, plan.Task.Text),
			History:       plan.History,
			PriorResponse: priorResponse,
			PriorRequest:  priorRequest,
		}
		priorResponse = nil
		priorRequest = ""

		i := i
		g.Go(func() error {
			slots[i].par = s.Runner.Run(gctx, turn, pub, acc)
			return nil
		})
	}

	// Turn errors are carried in the results, so Wait only reflects gctx.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return result, models.ErrCancelled
	}

	var failures []string
	for _, sl := range slots {
		result.PerAgent[sl.name] = sl.par
		if sl.par.Err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", sl.name, sl.par.Err))
			continue
		}
		result.Outputs[sl.name] = sl.par.Output
	}
	result.Missing = failures

	if len(result.Outputs) == 0 {
		return result, fmt.Errorf("all %d agents failed: %s", len(slots), strings.Join(failures, "; "))
	}

	result.FinalText = s.synthesize(ctx, plan, result, pub, acc)
	return result, nil
}

// synthesize combines outputs through the synthesis agent, falling back to
// the attributed concatenation when the agent is unavailable or fails.
func (s *Parallel) synthesize(ctx context.Context, plan Plan, result models.ExecutionResult, pub agent.Publisher, acc *agent.Accumulator) string {
	combined := attributedOutputs(result)

	desc, ok := plan.Agents[s.SynthesisAgent]
	if !ok {
		slog.Warn("Synthesis agent not configured, using attributed concatenation",
			"agent", s.SynthesisAgent)
		return combined
	}

	// Single text-only call: the synthesis turn carries no tools.
	desc.Tools = nil

	subtask := fmt.Sprintf(
		"Combine the following agent contributions into one coherent answer to the task. Preserve each agent's attribution as a section.\n\nTask: %s\n\n%s",
		plan.Task.Text, combined)
	if len(result.Missing) > 0 {
		subtask += "\n\nNote: the following agents did not contribute: " + strings.Join(result.Missing, "; ")
	}

	par := s.Runner.Run(ctx, agent.Turn{
		RunID:   plan.RunID,
		Agent:   desc,
		Subtask: subtask,
	}, pub, acc)
	if par.Err != nil || par.Output == "" {
		slog.Warn("Synthesis turn failed, using attributed concatenation",
			"agent", s.SynthesisAgent, "error", par.Err)
		return combined
	}

	result.PerAgent["synthesis"] = par
	return par.Output
}

// attributedOutputs renders successful outputs as per-agent sections in
// agent order.
func attributedOutputs(result models.ExecutionResult) string {
	var sb strings.Builder
	for _, name := range result.AgentOrder {
		out, ok := result.Outputs[name]
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## %s\n%s", name, out)
	}
	return sb.String()
}
