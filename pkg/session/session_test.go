package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/events"
	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/reasoner"
	"github.com/maestro-ai/maestro/pkg/store"
	"github.com/maestro-ai/maestro/pkg/supervisor"
	"github.com/maestro-ai/maestro/pkg/tools"
)

func newTestManager(t *testing.T, fake *llm.FakeClient, registry *tools.Registry, checkpoints store.CheckpointStore) *Manager {
	t.Helper()

	llms := llm.NewRegistry()
	require.NoError(t, llms.Register("fake", fake))
	if registry == nil {
		registry = tools.NewRegistry()
	}

	agents := map[string]models.AgentDescriptor{
		"writer": {Name: "writer", Model: "m", SystemPrompt: "write", Tools: []string{"approval_gate"}},
	}
	facade := reasoner.NewFacade(nil, reasoner.Heuristics{DefaultAgent: "writer"}, 4, registry,
		[]models.AgentDescriptor{agents["writer"]})

	sup := supervisor.New(supervisor.Config{DefaultAgent: "writer", ConfigVersion: "v1"}, supervisor.Deps{
		Reasoner:    facade,
		LLMs:        llms,
		Tools:       registry,
		Agents:      agents,
		History:     store.NewMemoryHistorySink(),
		Checkpoints: checkpoints,
	})
	return NewManager(sup, checkpoints, Config{})
}

func drain(t *testing.T, run *Run) []events.Event {
	t.Helper()
	var out []events.Event
	for e := range run.Events() {
		out = append(out, e)
	}
	return out
}

func TestStartRejectsConflictingFrame(t *testing.T) {
	m := newTestManager(t, &llm.FakeClient{}, nil, nil)

	_, err := m.Start(context.Background(), StartInput{Message: "hi", CheckpointID: "abc"})
	assert.True(t, models.IsInvalidInput(err))

	_, err = m.Start(context.Background(), StartInput{})
	assert.True(t, models.IsInvalidInput(err))

	// Resume without a checkpoint store configured.
	_, err = m.Start(context.Background(), StartInput{CheckpointID: "abc"})
	assert.True(t, models.IsInvalidInput(err))
}

func TestStartRunsToCompletion(t *testing.T) {
	fake := &llm.FakeClient{Script: []llm.FakeResponse{{TextChunks: []string{"hello there"}}}}
	m := newTestManager(t, fake, nil, nil)

	run, err := m.Start(context.Background(), StartInput{Message: "hi"})
	require.NoError(t, err)

	<-run.Done()
	all := drain(t, run)
	require.NotEmpty(t, all)
	assert.Equal(t, events.TypeWorkflowOutput, all[len(all)-1].EventType())

	assert.Equal(t, models.RunSucceeded, run.Status())
	result, runErr := run.Result()
	require.NoError(t, runErr)
	assert.Equal(t, "hello there", result.Result)
}

func TestRunIDsAreTimeOrdered(t *testing.T) {
	fake := &llm.FakeClient{Respond: func(*llm.GenerateInput) llm.FakeResponse {
		return llm.FakeResponse{TextChunks: []string{"ok"}}
	}}
	m := newTestManager(t, fake, nil, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := m.Start(context.Background(), StartInput{Message: "hi"})
		require.NoError(t, err)
		ids = append(ids, run.ID)
		<-run.Done()
		drain(t, run)
	}

	for i, id := range ids {
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		if i > 0 {
			assert.Less(t, ids[i-1], id)
		}
	}
}

func TestCancelProducesCancelledTerminal(t *testing.T) {
	fake := &llm.FakeClient{Respond: func(*llm.GenerateInput) llm.FakeResponse {
		return llm.FakeResponse{Delay: time.Second, TextChunks: []string{"never"}}
	}}
	m := newTestManager(t, fake, nil, nil)

	run, err := m.Start(context.Background(), StartInput{Message: "write a long report on storage engines"})
	require.NoError(t, err)

	require.NoError(t, m.Cancel(run.ID))
	// Cancel is idempotent.
	require.NoError(t, m.Cancel(run.ID))

	select {
	case <-run.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not terminate after cancel")
	}
	assert.Equal(t, models.RunCancelled, run.Status())

	all := drain(t, run)
	last := all[len(all)-1]
	errEvent, ok := last.(*events.Error)
	require.True(t, ok)
	assert.Equal(t, models.CodeCancelled, errEvent.Code)

	assert.ErrorIs(t, m.Cancel("missing"), models.ErrNotFound)
}

func TestSubmitResponseLifecycle(t *testing.T) {
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tools.Descriptor{
		Name: "approval_gate",
		Invoker: tools.InvokerFunc(func(_ context.Context, input map[string]any) (tools.Result, error) {
			if input["approved"] == true {
				return tools.Result{Content: "approved"}, nil
			}
			return tools.Result{}, tools.Suspend("approval", nil)
		}),
	}))
	fake := &llm.FakeClient{Respond: func(in *llm.GenerateInput) llm.FakeResponse {
		for _, msg := range in.Messages {
			if msg.Role == llm.RoleTool {
				return llm.FakeResponse{TextChunks: []string{"payment sent"}}
			}
		}
		return llm.FakeResponse{ToolCalls: []llm.ToolCall{
			{ID: "c1", Name: "approval_gate", Arguments: `{}`},
		}}
	}}
	m := newTestManager(t, fake, registry, nil)

	run, err := m.Start(context.Background(), StartInput{Message: "send the vendor payment after approval"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return run.Status() == models.RunNeedsResponse
	}, 2*time.Second, 10*time.Millisecond)

	run.mu.Lock()
	var requestID string
	for id := range run.pending {
		requestID = id
	}
	run.mu.Unlock()
	require.NotEmpty(t, requestID)

	assert.ErrorIs(t, m.SubmitResponse(run.ID, "bogus", nil), models.ErrUnknownRequest)
	require.NoError(t, m.SubmitResponse(run.ID, requestID, map[string]any{"approved": true}))
	assert.ErrorIs(t, m.SubmitResponse(run.ID, requestID, nil), models.ErrRequestResolved)

	<-run.Done()
	result, runErr := run.Result()
	require.NoError(t, runErr)
	assert.Equal(t, "payment sent", result.Result)

	var sawRequest bool
	for _, e := range drain(t, run) {
		if e.EventType() == events.TypeRequest {
			sawRequest = true
		}
	}
	assert.True(t, sawRequest)
}

func TestReleaseAndSweep(t *testing.T) {
	fake := &llm.FakeClient{Respond: func(*llm.GenerateInput) llm.FakeResponse {
		return llm.FakeResponse{Delay: 200 * time.Millisecond, TextChunks: []string{"slow"}}
	}}
	m := newTestManager(t, fake, nil, nil)

	run, err := m.Start(context.Background(), StartInput{Message: "hi"})
	require.NoError(t, err)

	// Live runs cannot be released.
	assert.True(t, models.IsInvalidInput(m.Release(run.ID)))

	<-run.Done()
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, m.Sweep(time.Millisecond))
	_, err = m.Get(run.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, m.Release(run.ID), models.ErrNotFound)
}
