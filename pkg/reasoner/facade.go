package reasoner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/tools"
)

// heuristicsVersion identifies the fallback-only façade for cache fingerprints.
const heuristicsVersion = "heuristics-v1"

// Facade wraps a Reasoner with assertion checks, a single retry, and
// heuristic fallbacks. A nil inner reasoner means heuristics-only operation
// (no REASONER_ARTIFACT configured).
type Facade struct {
	inner       Reasoner
	heur        Heuristics
	maxParallel int
	registry    *tools.Registry
	agents      []models.AgentDescriptor
	log         *slog.Logger
}

// NewFacade builds the façade. agents is the full configured agent set; the
// façade validates every routing decision against it.
func NewFacade(inner Reasoner, heur Heuristics, maxParallel int, registry *tools.Registry, agents []models.AgentDescriptor) *Facade {
	return &Facade{
		inner:       inner,
		heur:        heur,
		maxParallel: maxParallel,
		registry:    registry,
		agents:      agents,
		log:         slog.With("component", "reasoner"),
	}
}

// Version identifies the active reasoner for cache fingerprinting.
func (f *Facade) Version() string {
	if f.inner == nil {
		return heuristicsVersion
	}
	return f.inner.Version()
}

// AnalyzeTask returns the reasoner's analysis, or the heuristic one on failure.
func (f *Facade) AnalyzeTask(ctx context.Context, task string) models.TaskAnalysis {
	if f.inner != nil {
		analysis, err := f.inner.AnalyzeTask(ctx, task, f.registry.Describe())
		if err == nil {
			return analysis
		}
		f.log.Warn("Analysis failed, using heuristics", "error", err)
	}
	return f.heur.FallbackAnalysis(task, f.registry.ByCapability("web_search"))
}

// RouteTask returns a validated, normalized routing decision. Assertion
// violations trigger one retry, then the heuristic fallback.
func (f *Facade) RouteTask(ctx context.Context, task string, analysis models.TaskAnalysis) models.RoutingDecision {
	decision, ok := f.routeOnce(ctx, task, analysis)
	if !ok {
		decision, ok = f.routeOnce(ctx, task, analysis)
	}
	if !ok {
		decision = f.heur.FallbackRouting(task, f.agents)
	}
	return f.normalize(task, decision)
}

func (f *Facade) routeOnce(ctx context.Context, task string, analysis models.TaskAnalysis) (models.RoutingDecision, bool) {
	if f.inner == nil {
		return models.RoutingDecision{}, false
	}
	decision, err := f.inner.RouteTask(ctx, task, analysis, f.agents, f.registry.Describe())
	if err != nil {
		f.log.Warn("Routing failed", "error", err)
		return models.RoutingDecision{}, false
	}
	if err := f.assertRouting(decision); err != nil {
		f.log.Warn("Routing assertion failed", "error", err)
		return models.RoutingDecision{}, false
	}
	return decision, true
}

// assertRouting applies the hard constraints on a routing decision.
func (f *Facade) assertRouting(d models.RoutingDecision) error {
	if !models.ValidRoutingMode(d.Mode) {
		return &models.AssertionError{Op: "route_task", Reason: fmt.Sprintf("invalid mode %q", d.Mode)}
	}
	if len(d.Assigned) == 0 {
		return &models.AssertionError{Op: "route_task", Reason: "no agents assigned"}
	}
	if len(d.Assigned) > f.maxParallel {
		return &models.AssertionError{Op: "route_task", Reason: fmt.Sprintf("%d agents exceeds limit %d", len(d.Assigned), f.maxParallel)}
	}
	for _, name := range d.Assigned {
		agent, ok := findAgent(f.agents, name)
		if !ok {
			return &models.AssertionError{Op: "route_task", Reason: fmt.Sprintf("unknown agent %q", name)}
		}
		for _, tool := range d.ToolRequirements[name] {
			if !agent.HasTool(tool) && !f.registry.Has(tool) {
				return &models.AssertionError{Op: "route_task", Reason: fmt.Sprintf("agent %q requires unregistered tool %q", name, tool)}
			}
		}
	}
	return nil
}

// normalize rewrites decisions into executable form: a delegated decision
// with several agents becomes parallel, and time-sensitive tasks get a
// web-search-capable agent injected when one exists and room remains.
func (f *Facade) normalize(task string, d models.RoutingDecision) models.RoutingDecision {
	if d.Mode == models.ModeDelegated && len(d.Assigned) > 1 {
		d.Mode = models.ModeParallel
	}

	if TimeSensitive(task, f.heur.RecentYearThreshold) {
		d = f.ensureWebSearchAgent(task, d)
	}
	return d
}

func (f *Facade) ensureWebSearchAgent(task string, d models.RoutingDecision) models.RoutingDecision {
	searchTools := f.registry.ByCapability("web_search")
	if len(searchTools) == 0 {
		return d
	}
	searchTool := searchTools[0]

	capable := ""
	for _, a := range f.agents {
		for _, tool := range searchTools {
			if a.HasTool(tool) {
				capable = a.Name
				break
			}
		}
		if capable != "" {
			break
		}
	}
	if capable == "" {
		return d
	}

	for i, name := range d.Assigned {
		if name == capable {
			// Already assigned; make sure its subtask references the search.
			d.Subtasks = ensureSubtaskMentions(d.Subtasks, i, len(d.Assigned), task, searchTool)
			return d
		}
	}

	if len(d.Assigned) >= f.maxParallel {
		f.log.Warn("Time-sensitive task but no room for web-search agent",
			"agent", capable, "assigned", len(d.Assigned))
		return d
	}

	// Prepend so search results are available to downstream agents in
	// sequential mode.
	d.Assigned = append([]string{capable}, d.Assigned...)
	subtask := fmt.Sprintf("Use %s to gather current information for: %s", searchTool, task)
	d.Subtasks = append([]string{subtask}, d.Subtasks...)
	if d.Mode == models.ModeDelegated {
		d.Mode = models.ModeSequential
	}
	return d
}

func ensureSubtaskMentions(subtasks []string, idx, assignedLen int, task, searchTool string) []string {
	for len(subtasks) < assignedLen {
		subtasks = append(subtasks, "")
	}
	if !strings.Contains(subtasks[idx], searchTool) {
		if subtasks[idx] == "" {
			subtasks[idx] = task
		}
		subtasks[idx] += fmt.Sprintf(" (use %s for current information)", searchTool)
	}
	return subtasks
}

// EvaluateProgress returns the reasoner's verdict, or complete on failure.
func (f *Facade) EvaluateProgress(ctx context.Context, task string, outputs map[string]string) models.ProgressVerdict {
	if f.inner != nil {
		verdict, err := f.inner.EvaluateProgress(ctx, task, outputs)
		if err == nil {
			return verdict
		}
		f.log.Warn("Progress evaluation failed, treating as complete", "error", err)
	}
	return f.heur.FallbackProgress()
}

// AssessQuality returns the reasoner's verdict, or the fixed heuristic score.
func (f *Facade) AssessQuality(ctx context.Context, task, finalOutput string) models.QualityVerdict {
	if f.inner != nil {
		verdict, err := f.inner.AssessQuality(ctx, task, finalOutput)
		if err == nil {
			return verdict
		}
		f.log.Warn("Quality assessment failed, using fallback score", "error", err)
	}
	return f.heur.FallbackQuality()
}
