package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/reasoner"
	"github.com/maestro-ai/maestro/pkg/routing"
	"github.com/maestro-ai/maestro/pkg/session"
	"github.com/maestro-ai/maestro/pkg/store"
	"github.com/maestro-ai/maestro/pkg/supervisor"
	"github.com/maestro-ai/maestro/pkg/tools"
)

// testEnv bundles the server with the stores its handlers read.
type testEnv struct {
	server        *Server
	sessions      *session.Manager
	conversations *store.MemoryConversationStore
	history       *store.MemoryHistorySink
	cache         *routing.Cache
}

func newTestEnv(t *testing.T, fake *llm.FakeClient) *testEnv {
	t.Helper()

	llms := llm.NewRegistry()
	require.NoError(t, llms.Register("fake", fake))
	registry := tools.NewRegistry()

	agents := map[string]models.AgentDescriptor{
		"writer": {Name: "writer", Model: "m", SystemPrompt: "write"},
	}
	facade := reasoner.NewFacade(nil, reasoner.Heuristics{DefaultAgent: "writer"}, 4, registry,
		[]models.AgentDescriptor{agents["writer"]})

	conversations := store.NewMemoryConversationStore()
	history := store.NewMemoryHistorySink()
	cache := routing.NewCache(16, time.Minute)

	sup := supervisor.New(supervisor.Config{DefaultAgent: "writer", ConfigVersion: "v1"}, supervisor.Deps{
		Reasoner:      facade,
		LLMs:          llms,
		Tools:         registry,
		Agents:        agents,
		Cache:         cache,
		Conversations: conversations,
		History:       history,
	})
	sessions := session.NewManager(sup, nil, session.Config{})

	return &testEnv{
		server:        NewServer(Config{Addr: ":0"}, sessions, conversations, history, cache),
		sessions:      sessions,
		conversations: conversations,
		history:       history,
		cache:         cache,
	}
}
