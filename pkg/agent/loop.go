package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maestro-ai/maestro/pkg/events"
	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/tools"
)

// toolSummaryLimit caps the output summary carried on TOOL_CALL events.
const toolSummaryLimit = 200

// responderError marks a failed HITL exchange. Unlike ordinary tool errors it
// aborts the turn: the model must not continue without the required input.
type responderError struct {
	tool string
	err  error
}

func (e *responderError) Error() string {
	return fmt.Sprintf("tool %s: awaiting response failed: %v", e.tool, e.err)
}

func (e *responderError) Unwrap() error { return e.err }

// llmResponse is one fully-collected streaming LLM call.
type llmResponse struct {
	Text      string
	Thinking  string
	ToolCalls []llm.ToolCall
	Usage     models.TokenUsage
}

// runLoop is the tool-calling loop. Completion signal: a response without
// tool calls. At the iteration cap the model is called once more without
// tools to force a conclusion.
func (r *Runner) runLoop(ctx context.Context, turn Turn, pub Publisher, acc *Accumulator) models.PerAgentResult {
	var result models.PerAgentResult

	client, err := r.llms.Get(turn.Agent.Provider)
	if err != nil {
		result.Err = err
		return result
	}

	defs := toolDefinitions(r.tools.Declarations(turn.Agent.Tools))
	messages := initialMessages(turn)
	state := &iterationState{}
	priorResponse := turn.PriorResponse
	priorRequest := turn.PriorRequest

	for iteration := 0; iteration < r.maxIterations; iteration++ {
		state.currentIteration = iteration + 1

		if state.shouldAbortOnTimeouts() {
			result.Err = fmt.Errorf("aborting after %d consecutive timeouts: %s",
				state.consecutiveTimeoutFailures, state.lastErrorMessage)
			return result
		}

		resp, err := r.callLLM(ctx, client, turn, messages, defs, pub, acc)
		if err != nil {
			if ctxErr := contextFailure(ctx, err); ctxErr != nil {
				result.Err = ctxErr
				return result
			}
			state.recordFailure(err.Error(), isTimeoutError(err))
			retry := fmt.Sprintf("Error from previous attempt: %s. Please try again.", err.Error())
			messages = append(messages, llm.ConversationMessage{Role: llm.RoleUser, Content: retry})
			continue
		}

		result.Usage.Add(resp.Usage)
		state.recordSuccess()
		if resp.Thinking != "" {
			result.Reasoning = resp.Thinking
		}

		if len(resp.ToolCalls) == 0 {
			result.Output = resp.Text
			return result
		}

		messages = append(messages, llm.ConversationMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			rec, content, fatal := r.executeToolCall(ctx, turn, tc, pub, &priorResponse, &priorRequest)
			result.ToolCalls = append(result.ToolCalls, rec)
			if fatal != nil {
				result.Err = fatal
				return result
			}
			if rec.Err != "" {
				state.recordFailure(rec.Err, false)
			}
			if ctx.Err() != nil {
				result.Err = ctx.Err()
				return result
			}
			messages = append(messages, llm.ConversationMessage{
				Role:       llm.RoleTool,
				Content:    content,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
			})
		}
	}

	return r.forceConclusion(ctx, client, turn, messages, pub, acc, state, result)
}

// forceConclusion calls the model once without tools so the turn ends with
// text instead of another tool call.
func (r *Runner) forceConclusion(
	ctx context.Context,
	client llm.Client,
	turn Turn,
	messages []llm.ConversationMessage,
	pub Publisher,
	acc *Accumulator,
	state *iterationState,
	result models.PerAgentResult,
) models.PerAgentResult {
	if state.lastInteractionFailed {
		result.Err = fmt.Errorf("max iterations (%d) reached with last interaction failed: %s",
			r.maxIterations, state.lastErrorMessage)
		return result
	}

	prompt := fmt.Sprintf(
		"You have used %d tool-calling rounds. Provide your final answer now using the information gathered. Do not call any more tools.",
		state.currentIteration)
	messages = append(messages, llm.ConversationMessage{Role: llm.RoleUser, Content: prompt})

	resp, err := r.callLLM(ctx, client, turn, messages, nil, pub, acc)
	if err != nil {
		result.Err = fmt.Errorf("forced conclusion failed: %w", err)
		return result
	}
	result.Usage.Add(resp.Usage)
	if resp.Thinking != "" {
		result.Reasoning = resp.Thinking
	}
	result.Output = resp.Text
	return result
}

// callLLM performs one streaming call, publishing AGENT_DELTA per text chunk.
func (r *Runner) callLLM(
	ctx context.Context,
	client llm.Client,
	turn Turn,
	messages []llm.ConversationMessage,
	defs []llm.ToolDefinition,
	pub Publisher,
	acc *Accumulator,
) (*llmResponse, error) {
	llmCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Generate(llmCtx, &llm.GenerateInput{
		RunID:       turn.RunID,
		AgentID:     turn.Agent.Name,
		Messages:    messages,
		Tools:       defs,
		Model:       turn.Agent.Model,
		Temperature: turn.Agent.Temperature,
		MaxTokens:   turn.Agent.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm generate: %w", err)
	}

	resp := &llmResponse{}
	var textBuf, thinkingBuf strings.Builder

	for chunk := range stream {
		switch c := chunk.(type) {
		case *llm.TextChunk:
			textBuf.WriteString(c.Content)
			if c.Content != "" && acc != nil {
				global, agent := acc.Append(turn.Agent.Name, c.Content)
				publish(pub, events.NewAgentDelta(turn.Agent.Name, c.Content, global, agent))
			}
		case *llm.ThinkingChunk:
			thinkingBuf.WriteString(c.Content)
		case *llm.ToolCallChunk:
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:        c.CallID,
				Name:      c.Name,
				Arguments: c.Arguments,
			})
		case *llm.UsageChunk:
			resp.Usage = models.TokenUsage{
				InputTokens:  c.InputTokens,
				OutputTokens: c.OutputTokens,
				TotalTokens:  c.TotalTokens,
			}
		case *llm.ErrorChunk:
			return nil, fmt.Errorf("llm error: %s (code: %s, retryable: %v)", c.Message, c.Code, c.Retryable)
		}
	}

	// A cancelled context can end the stream without an ErrorChunk.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp.Text = textBuf.String()
	resp.Thinking = thinkingBuf.String()
	return resp, nil
}

// executeToolCall invokes one tool, handling suspension via the responder.
// The returned content is what goes back to the model as the tool result;
// failures come back as text so the model can adapt. A non-nil fatal error
// (unanswerable HITL request) aborts the turn instead.
func (r *Runner) executeToolCall(
	ctx context.Context,
	turn Turn,
	tc llm.ToolCall,
	pub Publisher,
	priorResponse *map[string]any,
	priorRequest *string,
) (models.ToolCallRecord, string, error) {
	start := time.Now()
	rec := models.ToolCallRecord{Tool: tc.Name}

	input := map[string]any{}
	if tc.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
			rec.Err = fmt.Sprintf("malformed tool arguments: %v", err)
			rec.DurationMs = time.Since(start).Milliseconds()
			publish(pub, events.NewToolCall(turn.Agent.Name, rec))
			return rec, "Tool call failed: " + rec.Err, nil
		}
	}
	rec.Input = input

	result, err := r.tools.Invoke(ctx, tc.Name, input)

	var susp *tools.Suspension
	if errors.As(err, &susp) {
		result, err = r.resolveSuspension(ctx, turn, tc, input, susp, pub, priorResponse, priorRequest)
	}

	rec.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		rec.Err = err.Error()
		publish(pub, events.NewToolCall(turn.Agent.Name, rec))
		var re *responderError
		if errors.As(err, &re) {
			return rec, "", err
		}
		return rec, "Tool call failed: " + rec.Err, nil
	}

	rec.OutputSummary = summarize(result.Content)
	publish(pub, events.NewToolCall(turn.Agent.Name, rec))
	return rec, result.Content, nil
}

// resolveSuspension answers a HITL suspension: from the checkpoint's prior
// response when resuming, otherwise by emitting a REQUEST and blocking on the
// responder. A resumed run without a prior response re-enters the suspension
// point and reuses the checkpointed request id. The tool is retried once with
// the response merged into its input.
func (r *Runner) resolveSuspension(
	ctx context.Context,
	turn Turn,
	tc llm.ToolCall,
	input map[string]any,
	susp *tools.Suspension,
	pub Publisher,
	priorResponse *map[string]any,
	priorRequest *string,
) (tools.Result, error) {
	var response map[string]any

	if *priorResponse != nil {
		response = *priorResponse
		*priorResponse = nil
		// The prior response answers the checkpointed request; later
		// suspensions get fresh ids.
		*priorRequest = ""
	} else {
		if r.responder == nil {
			return tools.Result{}, &responderError{tool: tc.Name, err: errors.New("no responder configured")}
		}
		requestID := *priorRequest
		*priorRequest = ""
		if requestID == "" {
			requestID = uuid.NewString()
		}
		req := models.PendingRequest{
			RequestID: requestID,
			Kind:      susp.Kind,
			Payload:   susp.Payload,
			AgentID:   turn.Agent.Name,
		}
		publish(pub, events.NewRequest(req.RequestID, req.Kind, req.Payload))

		var err error
		response, err = r.responder.Await(ctx, req)
		if err != nil {
			return tools.Result{}, &responderError{tool: tc.Name, err: err}
		}
	}

	merged := make(map[string]any, len(input)+len(response))
	for k, v := range input {
		merged[k] = v
	}
	for k, v := range response {
		merged[k] = v
	}

	result, err := r.tools.Invoke(ctx, tc.Name, merged)
	var again *tools.Suspension
	if errors.As(err, &again) {
		return tools.Result{}, fmt.Errorf("tool %s suspended again after response", tc.Name)
	}
	return result, err
}

func toolDefinitions(decls []tools.Declaration) []llm.ToolDefinition {
	if len(decls) == 0 {
		return nil
	}
	defs := make([]llm.ToolDefinition, len(decls))
	for i, d := range decls {
		defs[i] = llm.ToolDefinition{
			Name:             d.Name,
			Description:      d.Description,
			ParametersSchema: string(d.Schema),
		}
	}
	return defs
}

// contextFailure classifies err as a context failure, preferring the error
// chain over ctx.Err().
func contextFailure(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func isTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func summarize(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= toolSummaryLimit {
		return content
	}
	return content[:toolSummaryLimit] + "..."
}
