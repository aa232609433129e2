package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/tools"
)

// LLMReasoner prompts an LLM for strict-JSON verdicts using the artifact's
// templates. Output is parsed and enum-checked here; the façade applies the
// cross-cutting assertions.
type LLMReasoner struct {
	client      llm.Client
	artifact    *Artifact
	model       string
	temperature float64
}

// NewLLMReasoner builds a reasoner over the given provider client.
func NewLLMReasoner(client llm.Client, artifact *Artifact, model string) *LLMReasoner {
	return &LLMReasoner{
		client:   client,
		artifact: artifact,
		model:    model,
		// Low temperature keeps verdict JSON stable.
		temperature: 0.1,
	}
}

// Version implements Reasoner.
func (r *LLMReasoner) Version() string { return r.artifact.Version }

// AnalyzeTask implements Reasoner.
func (r *LLMReasoner) AnalyzeTask(ctx context.Context, task string, toolUniverse []tools.Info) (models.TaskAnalysis, error) {
	payload := map[string]any{"task": task, "tools": toolUniverse}
	var analysis models.TaskAnalysis
	if err := r.generateJSON(ctx, r.artifact.Prompts.Analyze, payload, &analysis); err != nil {
		return models.TaskAnalysis{}, err
	}
	switch analysis.Complexity {
	case models.ComplexitySimple, models.ComplexityMedium, models.ComplexityComplex:
	default:
		return models.TaskAnalysis{}, fmt.Errorf("%w: invalid complexity %q", models.ErrReasonerUnavailable, analysis.Complexity)
	}
	return analysis, nil
}

// RouteTask implements Reasoner.
func (r *LLMReasoner) RouteTask(ctx context.Context, task string, analysis models.TaskAnalysis, agents []models.AgentDescriptor, toolUniverse []tools.Info) (models.RoutingDecision, error) {
	agentViews := make([]map[string]any, len(agents))
	for i, a := range agents {
		agentViews[i] = map[string]any{
			"name":   a.Name,
			"prompt": a.SystemPrompt,
			"tools":  a.Tools,
		}
	}
	payload := map[string]any{
		"task":     task,
		"analysis": analysis,
		"agents":   agentViews,
		"tools":    toolUniverse,
	}
	var decision models.RoutingDecision
	if err := r.generateJSON(ctx, r.artifact.Prompts.Route, payload, &decision); err != nil {
		return models.RoutingDecision{}, err
	}
	return decision, nil
}

// EvaluateProgress implements Reasoner.
func (r *LLMReasoner) EvaluateProgress(ctx context.Context, task string, outputs map[string]string) (models.ProgressVerdict, error) {
	payload := map[string]any{"task": task, "outputs": outputs}
	var verdict models.ProgressVerdict
	if err := r.generateJSON(ctx, r.artifact.Prompts.Progress, payload, &verdict); err != nil {
		return models.ProgressVerdict{}, err
	}
	switch verdict.Status {
	case models.ProgressComplete, models.ProgressRefine, models.ProgressContinue:
	default:
		return models.ProgressVerdict{}, fmt.Errorf("%w: invalid progress status %q", models.ErrReasonerUnavailable, verdict.Status)
	}
	return verdict, nil
}

// AssessQuality implements Reasoner.
func (r *LLMReasoner) AssessQuality(ctx context.Context, task, finalOutput string) (models.QualityVerdict, error) {
	payload := map[string]any{"task": task, "output": finalOutput}
	var verdict models.QualityVerdict
	if err := r.generateJSON(ctx, r.artifact.Prompts.Quality, payload, &verdict); err != nil {
		return models.QualityVerdict{}, err
	}
	if verdict.Score < 0 || verdict.Score > 10 {
		return models.QualityVerdict{}, fmt.Errorf("%w: quality score %v out of range", models.ErrReasonerUnavailable, verdict.Score)
	}
	return verdict, nil
}

// generateJSON runs one LLM call and decodes the response into out.
func (r *LLMReasoner) generateJSON(ctx context.Context, template string, payload map[string]any, out any) error {
	context_, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	chunks, err := r.client.Generate(ctx, &llm.GenerateInput{
		Model:       r.model,
		Temperature: r.temperature,
		Messages: []llm.ConversationMessage{
			{Role: "system", Content: template},
			{Role: "user", Content: string(context_)},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrReasonerUnavailable, err)
	}

	var sb strings.Builder
	for chunk := range chunks {
		switch c := chunk.(type) {
		case *llm.TextChunk:
			sb.WriteString(c.Content)
		case *llm.ErrorChunk:
			return fmt.Errorf("%w: %s", models.ErrReasonerUnavailable, c.Message)
		}
	}

	raw := stripFences(sb.String())
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: malformed verdict JSON: %v", models.ErrReasonerUnavailable, err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
