package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/reasoner"
	"github.com/maestro-ai/maestro/pkg/session"
	"github.com/maestro-ai/maestro/pkg/store"
	"github.com/maestro-ai/maestro/pkg/supervisor"
	"github.com/maestro-ai/maestro/pkg/tools"
)

func newManager(t *testing.T) *session.Manager {
	t.Helper()

	fake := &llm.FakeClient{Script: []llm.FakeResponse{{TextChunks: []string{"done"}}}}
	llms := llm.NewRegistry()
	require.NoError(t, llms.Register("fake", fake))
	registry := tools.NewRegistry()

	agents := map[string]models.AgentDescriptor{
		"writer": {Name: "writer", Model: "m", SystemPrompt: "write"},
	}
	facade := reasoner.NewFacade(nil, reasoner.Heuristics{DefaultAgent: "writer"}, 4, registry,
		[]models.AgentDescriptor{agents["writer"]})
	sup := supervisor.New(supervisor.Config{DefaultAgent: "writer", ConfigVersion: "v1"}, supervisor.Deps{
		Reasoner: facade,
		LLMs:     llms,
		Tools:    registry,
		Agents:   agents,
		History:  store.NewMemoryHistorySink(),
	})
	return session.NewManager(sup, nil, session.Config{})
}

func TestServiceSweepsTerminalRuns(t *testing.T) {
	mgr := newManager(t)

	run, err := mgr.Start(context.Background(), session.StartInput{Message: "hi"})
	require.NoError(t, err)
	<-run.Done()
	for range run.Events() {
	}

	svc := NewService(mgr, 10*time.Millisecond, time.Nanosecond)
	svc.Start(context.Background())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		_, err := mgr.Get(run.ID)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestServiceStartStopIdempotent(t *testing.T) {
	svc := NewService(newManager(t), time.Hour, time.Hour)

	svc.Start(context.Background())
	svc.Start(context.Background())
	svc.Stop()

	assert.Equal(t, DefaultInterval, NewService(nil, 0, 0).interval)
	assert.Equal(t, DefaultRetention, NewService(nil, 0, 0).retention)
}
