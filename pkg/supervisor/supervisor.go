// Package supervisor drives a run through the five-phase pipeline: Analysis,
// Routing, Execution, Progress, Quality. It owns the run's event stream
// discipline (exactly one terminal event), the fast path for trivial tasks,
// routing-cache consultation, refinement and re-planning budgets, and
// checkpoint capture at HITL boundaries.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/maestro-ai/maestro/pkg/agent"
	"github.com/maestro-ai/maestro/pkg/events"
	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/memory"
	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/reasoner"
	"github.com/maestro-ai/maestro/pkg/redact"
	"github.com/maestro-ai/maestro/pkg/routing"
	"github.com/maestro-ai/maestro/pkg/store"
	"github.com/maestro-ai/maestro/pkg/strategy"
	"github.com/maestro-ai/maestro/pkg/tools"
)

// Pipeline budgets applied when the config leaves them unset.
const (
	DefaultMaxRounds           = 15
	DefaultMaxRefinementRounds = 1
)

// Config is the immutable supervisor configuration, loaded once at startup.
type Config struct {
	MaxRounds           int
	MaxParallelAgents   int
	MaxRefinementRounds int
	MaxIterations       int

	// EnableRefinement gates the Progress phase; off by default for latency.
	EnableRefinement bool

	RunTimeout     time.Duration
	DefaultAgent   string
	ConfigVersion  string
	RecentMessages int

	// EnableSensitiveData keeps task text readable in history rows and
	// telemetry; off means previews are redacted.
	EnableSensitiveData bool
}

func (c Config) withDefaults() Config {
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.MaxParallelAgents <= 0 {
		c.MaxParallelAgents = strategy.DefaultMaxParallel
	}
	if c.MaxRefinementRounds <= 0 {
		c.MaxRefinementRounds = DefaultMaxRefinementRounds
	}
	if c.RecentMessages <= 0 {
		c.RecentMessages = memory.DefaultRecentMessages
	}
	return c
}

// Deps are the supervisor's collaborators. Conversations, History, and
// Checkpoints may be nil; the corresponding feature is then skipped.
type Deps struct {
	Reasoner      *reasoner.Facade
	LLMs          *llm.Registry
	Tools         *tools.Registry
	Agents        map[string]models.AgentDescriptor
	Cache         *routing.Cache
	Conversations store.ConversationStore
	History       store.HistorySink
	Checkpoints   store.CheckpointStore
}

// Supervisor runs tasks. Safe for concurrent use; all per-run state lives on
// the stack of Run.
type Supervisor struct {
	cfg  Config
	deps Deps
	log  *slog.Logger
}

// New wires a supervisor.
func New(cfg Config, deps Deps) *Supervisor {
	return &Supervisor{
		cfg:  cfg.withDefaults(),
		deps: deps,
		log:  slog.With("component", "supervisor"),
	}
}

// RunInput describes one run. Checkpoint non-nil means resume: the task and
// routing decision come from the checkpoint and the analysis and routing
// phases are skipped.
type RunInput struct {
	RunID               string
	Task                models.Task
	ConversationID      string
	EnableCheckpointing bool
	Checkpoint          *models.Checkpoint
	Responder           agent.Responder
}

// runState is the per-run scratch shared by the phase helpers.
type runState struct {
	in       RunInput
	pub      agent.Publisher
	acc      *agent.Accumulator
	runner   *agent.Runner
	recorder *outputRecorder
	ckpt     *checkpointer

	history   []models.Message
	decision  models.RoutingDecision
	durations models.PhaseDurations
	usage     models.TokenUsage
	started   time.Time
}

// Run executes one task end to end. Exactly one terminal event is published:
// WORKFLOW_OUTPUT on success, ERROR otherwise (cancellation included). The
// returned error mirrors the ERROR event.
func (s *Supervisor) Run(ctx context.Context, in RunInput, pub agent.Publisher) (models.WorkflowResult, error) {
	runCtx := ctx
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	if in.Checkpoint != nil {
		in.Task = in.Checkpoint.Task
		if in.ConversationID == "" {
			in.ConversationID = in.Checkpoint.ConversationID
		}
	}

	st := &runState{in: in, pub: pub, started: time.Now()}
	publish(pub, events.NewWorkflowStatus(in.RunID, events.StateInProgress, ""))

	st.history = s.loadHistory(runCtx, in)
	st.acc = agent.NewAccumulator()
	st.recorder = newOutputRecorder(pub, st.acc)

	responder := in.Responder
	if in.EnableCheckpointing && s.deps.Checkpoints != nil && responder != nil {
		st.ckpt = &checkpointer{
			inner:          responder,
			store:          s.deps.Checkpoints,
			pub:            pub,
			recorder:       st.recorder,
			runID:          in.RunID,
			conversationID: in.ConversationID,
			task:           in.Task,
		}
		responder = st.ckpt
	}
	st.runner = agent.NewRunner(s.deps.LLMs, s.deps.Tools, responder, s.cfg.MaxIterations)

	if in.Checkpoint == nil && Trivial(in.Task.Text) && !memory.HasAssistantTurn(st.history) {
		if result, handled, err := s.fastPath(runCtx, st); handled {
			return result, err
		}
	}

	var analysis models.TaskAnalysis
	if in.Checkpoint == nil {
		t0 := time.Now()
		publish(pub, events.NewOrchestratorMessage(events.KindAnalysis, events.StatusStarted, nil))
		analysis = s.deps.Reasoner.AnalyzeTask(runCtx, in.Task.Text)
		publish(pub, events.NewOrchestratorMessage(events.KindAnalysis, verdictStatus(analysis.Fallback), analysis))
		st.durations.Analysis = time.Since(t0).Milliseconds()
		if err := runErr(runCtx); err != nil {
			return s.fail(ctx, st, err, "analysis")
		}

		t0 = time.Now()
		st.decision = s.route(runCtx, st, in.Task.Text, analysis, false)
		st.durations.Routing = time.Since(t0).Milliseconds()
		if err := runErr(runCtx); err != nil {
			return s.fail(ctx, st, err, "routing")
		}
	} else {
		st.decision = in.Checkpoint.Routing
	}

	exec, err := s.executeRounds(runCtx, st, analysis)
	if err != nil {
		return s.fail(ctx, st, err, "execution")
	}

	t0 := time.Now()
	quality := s.deps.Reasoner.AssessQuality(runCtx, in.Task.Text, exec.FinalText)
	publish(pub, events.NewQuality(quality))
	st.durations.Quality = time.Since(t0).Milliseconds()
	if err := runErr(runCtx); err != nil {
		return s.fail(ctx, st, err, "quality")
	}

	return s.finish(ctx, st, exec, &quality)
}

// fastPath runs the default agent once, bypassing routing and quality. The
// standard event envelope still frames the turn. handled=false means the
// default agent is not configured and the full pipeline should run.
func (s *Supervisor) fastPath(ctx context.Context, st *runState) (models.WorkflowResult, bool, error) {
	desc, ok := s.deps.Agents[s.cfg.DefaultAgent]
	if !ok {
		s.log.Warn("Fast path skipped: default agent not configured",
			"run_id", st.in.RunID, "agent", s.cfg.DefaultAgent)
		return models.WorkflowResult{}, false, nil
	}

	s.log.Debug("Taking fast path", "run_id", st.in.RunID, "agent", desc.Name)
	t0 := time.Now()
	par := st.runner.Run(ctx, agent.Turn{
		RunID:   st.in.RunID,
		Agent:   desc,
		Subtask: st.in.Task.Text,
		History: st.history,
	}, st.recorder, st.acc)
	st.durations.Execution = time.Since(t0).Milliseconds()
	st.usage.Add(par.Usage)

	if par.Err != nil {
		result, err := s.fail(ctx, st, par.Err, "execution")
		return result, true, err
	}

	exec := models.ExecutionResult{
		Outputs:    map[string]string{desc.Name: par.Output},
		AgentOrder: []string{desc.Name},
		PerAgent:   map[string]models.PerAgentResult{desc.Name: par},
		FinalText:  par.Output,
	}
	result, err := s.finish(ctx, st, exec, nil)
	return result, true, err
}

// route resolves a routing decision, consulting the cache unless bypassed.
// Fallback decisions are never cached.
func (s *Supervisor) route(ctx context.Context, st *runState, taskText string, analysis models.TaskAnalysis, bypassCache bool) models.RoutingDecision {
	fp := routing.Fingerprint(taskText, s.deps.Tools.Names(), s.deps.Reasoner.Version(), s.cfg.ConfigVersion)

	if !bypassCache && s.deps.Cache != nil {
		if cached, ok := s.deps.Cache.Get(fp); ok {
			publish(st.pub, events.NewOrchestratorMessage(events.KindRouting, events.StatusCached, cached))
			return cached
		}
	}

	decision := s.deps.Reasoner.RouteTask(ctx, taskText, analysis)
	if s.deps.Cache != nil && !decision.Fallback {
		s.deps.Cache.Put(fp, decision)
	}
	publish(st.pub, events.NewOrchestratorMessage(events.KindRouting, verdictStatus(decision.Fallback), decision))
	return decision
}

// executeRounds loops Execution and Progress within the round budget.
// Progress verdicts steer the loop: refine re-executes the same agents with a
// refinement subtask, continue re-plans through routing with the cache
// bypassed so the new focus is honored.
func (s *Supervisor) executeRounds(ctx context.Context, st *runState, analysis models.TaskAnalysis) (models.ExecutionResult, error) {
	plan := strategy.Plan{
		RunID:   st.in.RunID,
		Task:    st.in.Task,
		Agents:  s.deps.Agents,
		History: st.history,
	}
	if cp := st.in.Checkpoint; cp != nil {
		plan.PriorOutputs = cp.Outputs
		plan.PriorRequest = cp.Pending.RequestID
	}

	var exec models.ExecutionResult
	refinements := 0

	for round := 1; ; round++ {
		if err := runErr(ctx); err != nil {
			return exec, err
		}

		plan.Decision = st.decision
		if st.ckpt != nil {
			st.ckpt.setDecision(st.decision)
		}

		strat, err := strategy.Select(st.decision.Mode, st.runner, s.cfg.MaxParallelAgents, s.cfg.DefaultAgent)
		if err != nil {
			return exec, err
		}

		t0 := time.Now()
		exec, err = strat.Execute(ctx, plan, st.recorder, st.acc)
		st.durations.Execution += time.Since(t0).Milliseconds()
		for _, par := range exec.PerAgent {
			st.usage.Add(par.Usage)
		}
		if err != nil {
			return exec, err
		}

		if !s.cfg.EnableRefinement {
			return exec, nil
		}
		if round >= s.cfg.MaxRounds {
			s.log.Warn("Round budget exhausted, accepting current output",
				"run_id", st.in.RunID, "rounds", round)
			return exec, nil
		}

		t0 = time.Now()
		verdict := s.deps.Reasoner.EvaluateProgress(ctx, st.in.Task.Text, exec.Outputs)
		st.durations.Progress += time.Since(t0).Milliseconds()
		publish(st.pub, events.NewOrchestratorMessage(events.KindProgress, events.StatusCompleted, verdict))
		if err := runErr(ctx); err != nil {
			return exec, err
		}

		switch verdict.Status {
		case models.ProgressRefine:
			if refinements >= s.cfg.MaxRefinementRounds {
				return exec, nil
			}
			refinements++
			plan.Task.Text = refinementTask(st.in.Task.Text, exec.FinalText, verdict)
			st.decision.Subtasks = nil

		case models.ProgressContinue:
			focus := st.in.Task.Text
			if verdict.NextFocus != "" {
				focus += "\n\nFocus next on: " + verdict.NextFocus
			}
			t0 := time.Now()
			st.decision = s.route(ctx, st, focus, analysis, true)
			st.durations.Routing += time.Since(t0).Milliseconds()
			plan.Task.Text = focus

		default:
			return exec, nil
		}

		// Later rounds start fresh: no checkpoint carryover, no re-injected
		// history (the first round already embedded it).
		plan.History = nil
		plan.PriorOutputs = nil
		plan.PriorRequest = ""
	}
}

// finish publishes the terminal WORKFLOW_OUTPUT and persists the outcome.
func (s *Supervisor) finish(ctx context.Context, st *runState, exec models.ExecutionResult, quality *models.QualityVerdict) (models.WorkflowResult, error) {
	st.durations.Total = time.Since(st.started).Milliseconds()

	reasoning, reasoningAgent := finalReasoning(exec)
	if reasoning != "" {
		publish(st.pub, events.NewReasoningCompleted(reasoning, reasoningAgent))
	}

	result := models.WorkflowResult{
		RunID:     st.in.RunID,
		Result:    exec.FinalText,
		Reasoning: reasoning,
		Quality:   quality,
		Durations: st.durations,
		Usage:     st.usage,
	}
	publish(st.pub, events.NewWorkflowOutput(result))

	persistCtx := context.WithoutCancel(ctx)
	s.persistAssistant(persistCtx, st, exec.FinalText, reasoning)
	s.appendRecord(persistCtx, st, models.RunSucceeded, quality)

	if cp := st.in.Checkpoint; cp != nil && cp.ID != "" && s.deps.Checkpoints != nil {
		if err := s.deps.Checkpoints.Delete(persistCtx, cp.ID); err != nil {
			s.log.Warn("Deleting consumed checkpoint failed",
				"run_id", st.in.RunID, "checkpoint_id", cp.ID, "error", err)
		}
	}
	return result, nil
}

// fail publishes the terminal ERROR and records the failed run.
func (s *Supervisor) fail(ctx context.Context, st *runState, err error, phase string) (models.WorkflowResult, error) {
	st.durations.Total = time.Since(st.started).Milliseconds()

	code := models.CodeFor(err)
	publish(st.pub, events.NewError(code, displayMessage(code, err), phase))
	s.log.Error("Run failed", "run_id", st.in.RunID, "phase", phase, "code", code, "error", err)

	status := models.RunFailed
	if code == models.CodeCancelled {
		status = models.RunCancelled
	}
	s.appendRecord(context.WithoutCancel(ctx), st, status, nil)
	return models.WorkflowResult{}, err
}

// loadHistory fetches recent conversation messages and persists the new user
// message before the agents run. Store failures degrade to a memoryless run.
func (s *Supervisor) loadHistory(ctx context.Context, in RunInput) []models.Message {
	if in.ConversationID == "" || s.deps.Conversations == nil {
		return nil
	}

	history, err := s.deps.Conversations.RecentMessages(ctx, in.ConversationID, s.cfg.RecentMessages)
	if err != nil {
		s.log.Warn("Loading conversation history failed",
			"conversation_id", in.ConversationID, "error", err)
		history = nil
	}

	if in.Checkpoint == nil {
		_, err := s.deps.Conversations.AppendMessage(ctx, in.ConversationID, models.Message{
			Role:    models.RoleUser,
			Content: in.Task.Text,
		})
		if err != nil {
			s.log.Warn("Persisting user message failed",
				"conversation_id", in.ConversationID, "error", err)
		}
	}
	return history
}

func (s *Supervisor) persistAssistant(ctx context.Context, st *runState, finalText, reasoning string) {
	if st.in.ConversationID == "" || s.deps.Conversations == nil {
		return
	}
	_, err := s.deps.Conversations.AppendMessage(ctx, st.in.ConversationID, models.Message{
		Role:      models.RoleAssistant,
		Content:   finalText,
		Reasoning: reasoning,
	})
	if err != nil {
		s.log.Warn("Persisting assistant message failed",
			"conversation_id", st.in.ConversationID, "error", err)
	}
}

func (s *Supervisor) appendRecord(ctx context.Context, st *runState, status models.RunStatus, quality *models.QualityVerdict) {
	if s.deps.History == nil {
		return
	}
	rec := models.RunRecord{
		RunID:       st.in.RunID,
		TaskPreview: redact.Preview(st.in.Task.Text, s.cfg.EnableSensitiveData, 0),
		Status:      status,
		Quality:     quality,
		Durations:   st.durations,
		StartedAt:   st.started.UTC(),
		CompletedAt: time.Now().UTC(),
	}
	if len(st.decision.Assigned) > 0 {
		d := st.decision
		rec.Routing = &d
	}
	if err := s.deps.History.Append(ctx, rec); err != nil {
		s.log.Warn("Appending run record failed", "run_id", st.in.RunID, "error", err)
	}
}

// refinementTask builds the subtask for a refine round.
func refinementTask(task, previous string, verdict models.ProgressVerdict) string {
	var sb strings.Builder
	sb.WriteString("Refine the previous answer to this task: ")
	sb.WriteString(task)
	sb.WriteString("\n\nPrevious answer:\n")
	sb.WriteString(previous)
	if len(verdict.Missing) > 0 {
		sb.WriteString("\n\nAddress these gaps: ")
		sb.WriteString(strings.Join(verdict.Missing, "; "))
	}
	if verdict.NextFocus != "" {
		sb.WriteString("\n\nFocus on: ")
		sb.WriteString(verdict.NextFocus)
	}
	return sb.String()
}

// finalReasoning picks the trace for REASONING_COMPLETED: the synthesis
// turn's when present, else the last contributing agent's.
func finalReasoning(exec models.ExecutionResult) (string, string) {
	if par, ok := exec.PerAgent["synthesis"]; ok && par.Reasoning != "" {
		return par.Reasoning, par.AgentID
	}
	for i := len(exec.AgentOrder) - 1; i >= 0; i-- {
		name := exec.AgentOrder[i]
		if par, ok := exec.PerAgent[name]; ok && par.Reasoning != "" {
			return par.Reasoning, name
		}
	}
	return "", ""
}

// runErr maps a spent run context to the matching sentinel.
func runErr(ctx context.Context) error {
	switch {
	case ctx.Err() == nil:
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return models.ErrTimeout
	default:
		return models.ErrCancelled
	}
}

// displayMessage keeps terminal ERROR messages display-safe.
func displayMessage(code models.ErrorCode, err error) string {
	switch code {
	case models.CodeInvalidInput, models.CodeAgentFailure:
		return err.Error()
	case models.CodeCancelled:
		return "run cancelled"
	case models.CodeTimeout:
		return "run exceeded its deadline"
	default:
		return "internal error"
	}
}

func verdictStatus(fallback bool) string {
	if fallback {
		return events.StatusFallback
	}
	return events.StatusCompleted
}

func publish(pub agent.Publisher, e events.Event) {
	if pub != nil {
		pub.Publish(e)
	}
}
