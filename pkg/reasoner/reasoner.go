// Package reasoner is the typed boundary around structured reasoning: task
// analysis, routing, progress evaluation, and quality assessment. The façade
// validates every output against hard assertions, retries once on violation,
// and falls back to deterministic heuristics when the reasoner is unavailable.
package reasoner

import (
	"context"

	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/tools"
)

// Reasoner produces the four verdicts. Implementations may be LLM-backed or
// heuristic; the façade treats them uniformly.
type Reasoner interface {
	// Version identifies the reasoner for cache fingerprinting.
	Version() string

	AnalyzeTask(ctx context.Context, task string, toolUniverse []tools.Info) (models.TaskAnalysis, error)
	RouteTask(ctx context.Context, task string, analysis models.TaskAnalysis, agents []models.AgentDescriptor, toolUniverse []tools.Info) (models.RoutingDecision, error)
	EvaluateProgress(ctx context.Context, task string, outputs map[string]string) (models.ProgressVerdict, error)
	AssessQuality(ctx context.Context, task, finalOutput string) (models.QualityVerdict, error)
}
