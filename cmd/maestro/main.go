// Maestro orchestrator server: exposes the HTTP/WebSocket API and drives
// multi-agent runs through the supervisor pipeline.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maestro-ai/maestro/pkg/api"
	"github.com/maestro-ai/maestro/pkg/cleanup"
	"github.com/maestro-ai/maestro/pkg/config"
	"github.com/maestro-ai/maestro/pkg/database"
	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/reasoner"
	"github.com/maestro-ai/maestro/pkg/routing"
	"github.com/maestro-ai/maestro/pkg/session"
	"github.com/maestro-ai/maestro/pkg/store"
	"github.com/maestro-ai/maestro/pkg/supervisor"
	"github.com/maestro-ai/maestro/pkg/tools"
	"github.com/maestro-ai/maestro/pkg/version"
)

func main() {
	configPath := flag.String("config", getEnv("MAESTRO_CONFIG", "./maestro.yaml"),
		"Path to the configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file, continuing with existing environment", "error", err)
	}

	slog.Info("Starting maestro", "version", version.Full(), "config", *configPath)

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Stores: Postgres when a database URL is configured, in-memory otherwise.
	var (
		conversations store.ConversationStore
		history       store.HistorySink
	)
	if cfg.Database.URL != "" {
		db, err := database.NewClientFromDSN(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		conversations = store.NewPostgresConversationStore(db.Pool)
		history = store.NewPostgresHistorySink(db.Pool)
		slog.Info("Connected to PostgreSQL database")
	} else {
		conversations = store.NewMemoryConversationStore()
		history = store.NewMemoryHistorySink()
		slog.Warn("No database configured, using in-memory stores")
	}

	var checkpoints store.CheckpointStore
	if cfg.Checkpoints.Dir != "" {
		cs, err := store.NewFileCheckpointStore(cfg.Checkpoints.Dir)
		if err != nil {
			slog.Error("Failed to open checkpoint store", "dir", cfg.Checkpoints.Dir, "error", err)
			os.Exit(1)
		}
		checkpoints = cs
		slog.Info("Checkpoint store ready", "dir", cfg.Checkpoints.Dir)
	}

	// LLM providers. Registration order is sorted so the default provider is
	// deterministic across restarts.
	llms := llm.NewRegistry()
	defer func() {
		if err := llms.Close(); err != nil {
			slog.Error("Error closing LLM clients", "error", err)
		}
	}()
	providerNames := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		providerNames = append(providerNames, name)
	}
	sort.Strings(providerNames)
	for _, name := range providerNames {
		p := cfg.Providers[name]
		client, err := llm.NewClientFromConfig(llm.ProviderConfig{
			Name:      name,
			Type:      p.Kind,
			APIKeyEnv: p.APIKeyEnv,
			BaseURL:   p.BaseURL,
		})
		if err != nil {
			slog.Error("Failed to initialize LLM provider", "provider", name, "error", err)
			os.Exit(1)
		}
		if err := llms.Register(name, client); err != nil {
			slog.Error("Failed to register LLM provider", "provider", name, "error", err)
			os.Exit(1)
		}
	}
	if len(providerNames) == 0 {
		slog.Error("No LLM providers configured; agents cannot run")
		os.Exit(1)
	}
	slog.Info("LLM providers initialized", "count", len(providerNames))

	// Tools.
	toolRegistry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(toolRegistry, &http.Client{Timeout: 30 * time.Second}); err != nil {
		slog.Error("Failed to register builtin tools", "error", err)
		os.Exit(1)
	}

	// Reasoner: LLM-backed when an artifact is configured, heuristics-only
	// otherwise.
	heuristics := reasoner.Heuristics{
		DefaultAgent:        cfg.DefaultAgent,
		RecentYearThreshold: cfg.Reasoner.RecentYearThreshold,
	}
	var inner reasoner.Reasoner
	if cfg.Reasoner.Artifact != "" {
		artifact, err := reasoner.LoadArtifact(cfg.Reasoner.Artifact)
		if err != nil {
			slog.Error("Failed to load reasoner artifact", "path", cfg.Reasoner.Artifact, "error", err)
			os.Exit(1)
		}
		client, err := llms.Get("")
		if err != nil {
			slog.Error("No default LLM provider for the reasoner", "error", err)
			os.Exit(1)
		}
		inner = reasoner.NewLLMReasoner(client, artifact, reasonerModel(cfg, providerNames))
		slog.Info("Reasoner artifact loaded", "version", artifact.Version)
	} else {
		slog.Warn("No reasoner artifact configured, running on heuristics")
	}
	facade := reasoner.NewFacade(inner, heuristics, cfg.Budgets.MaxParallelAgents,
		toolRegistry, cfg.AgentList())

	cache := routing.NewCache(cfg.Routing.CacheMaxEntries, cfg.Routing.CacheTTL.Std())

	sup := supervisor.New(supervisor.Config{
		MaxRounds:           cfg.Budgets.MaxRounds,
		MaxParallelAgents:   cfg.Budgets.MaxParallelAgents,
		MaxRefinementRounds: cfg.Budgets.MaxRefinementRounds,
		MaxIterations:       cfg.Budgets.MaxIterations,
		EnableRefinement:    cfg.Quality.EnableRefinement,
		RunTimeout:          cfg.Budgets.RunTimeout.Std(),
		DefaultAgent:        cfg.DefaultAgent,
		ConfigVersion:       cfg.Routing.ConfigVersion,
		RecentMessages:      cfg.Memory.RecentMessages,
		EnableSensitiveData: cfg.EnableSensitiveData,
	}, supervisor.Deps{
		Reasoner:      facade,
		LLMs:          llms,
		Tools:         toolRegistry,
		Agents:        cfg.AgentDescriptors(),
		Cache:         cache,
		Conversations: conversations,
		History:       history,
		Checkpoints:   checkpoints,
	})

	sessions := session.NewManager(sup, checkpoints, session.Config{
		MaxTaskLength: cfg.Budgets.MaxTaskLength,
	})

	janitor := cleanup.NewService(sessions, 0, 0)
	janitor.Start(ctx)
	defer janitor.Stop()

	server := api.NewServer(api.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, sessions, conversations, history, cache)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	slog.Info("Maestro started", "addr", cfg.Server.Addr, "agents", len(cfg.Agents))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

// reasonerModel picks the model the reasoner calls: the default provider's
// default model, else the default agent's model.
func reasonerModel(cfg *config.Config, providerNames []string) string {
	if len(providerNames) > 0 {
		if m := cfg.Providers[providerNames[0]].DefaultModel; m != "" {
			return m
		}
	}
	return cfg.Agents[cfg.DefaultAgent].Model
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
