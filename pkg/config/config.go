// Package config loads the maestro.yaml configuration: agents, LLM providers,
// routing cache bounds, pipeline budgets, and transport settings. Loading is
// one-shot at startup; the resolved Config is immutable afterwards.
package config

import (
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/maestro-ai/maestro/pkg/models"
)

// Duration decodes human-friendly YAML durations ("90s", "2m") and plain
// integers (milliseconds).
type Duration time.Duration

// Std returns the standard library form.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var ms int64
	if err := value.Decode(&ms); err != nil {
		return fmt.Errorf("invalid duration value on line %d", value.Line)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds the Postgres connection settings. An empty URL runs
// the process on in-memory stores.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// CheckpointConfig holds checkpoint storage settings. An empty dir disables
// checkpointing.
type CheckpointConfig struct {
	Dir string `yaml:"dir"`
}

// ReasonerConfig selects the reasoner artifact. An empty artifact path runs
// heuristics-only.
type ReasonerConfig struct {
	Artifact            string `yaml:"artifact"`
	RecentYearThreshold int    `yaml:"recent_year_threshold"`
}

// RoutingConfig bounds the routing-decision cache. ConfigVersion is part of
// the cache fingerprint; bump it to invalidate all cached decisions.
type RoutingConfig struct {
	CacheTTL        Duration `yaml:"cache_ttl"`
	CacheMaxEntries int      `yaml:"cache_max_entries"`
	ConfigVersion   string   `yaml:"config_version"`
}

// BudgetConfig caps the pipeline loops and timeouts.
type BudgetConfig struct {
	MaxRounds           int      `yaml:"max_rounds"`
	MaxParallelAgents   int      `yaml:"max_parallel_agents"`
	MaxRefinementRounds int      `yaml:"max_refinement_rounds"`
	MaxIterations       int      `yaml:"max_iterations"`
	MaxTaskLength       int      `yaml:"max_task_length"`
	AgentTimeout        Duration `yaml:"agent_timeout"`
	RunTimeout          Duration `yaml:"run_timeout"`
}

// QualityConfig gates the progress/refinement loop.
type QualityConfig struct {
	EnableRefinement bool `yaml:"enable_refinement"`
}

// MemoryConfig bounds conversation history injection.
type MemoryConfig struct {
	RecentMessages int `yaml:"recent_messages"`
}

// ProviderConfig declares one LLM provider. APIKeyEnv names the environment
// variable holding the key; the key itself never appears in YAML.
type ProviderConfig struct {
	Kind         string `yaml:"kind"` // openai, anthropic
	APIKeyEnv    string `yaml:"api_key_env"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

// AgentConfig declares one agent.
type AgentConfig struct {
	Model           string   `yaml:"model"`
	Provider        string   `yaml:"provider"`
	SystemPrompt    string   `yaml:"system_prompt"`
	Tools           []string `yaml:"tools"`
	Temperature     float64  `yaml:"temperature"`
	Timeout         Duration `yaml:"timeout"`
	MaxTokens       int      `yaml:"max_tokens"`
	ReasoningEffort string   `yaml:"reasoning_effort"`
}

// Config is the complete resolved configuration.
type Config struct {
	Server      ServerConfig     `yaml:"server"`
	Database    DatabaseConfig   `yaml:"database"`
	Checkpoints CheckpointConfig `yaml:"checkpoints"`
	Reasoner    ReasonerConfig   `yaml:"reasoner"`
	Routing     RoutingConfig    `yaml:"routing"`
	Budgets     BudgetConfig     `yaml:"budgets"`
	Quality     QualityConfig    `yaml:"quality"`
	Memory      MemoryConfig     `yaml:"memory"`

	DefaultAgent        string `yaml:"default_agent"`
	EnableSensitiveData bool   `yaml:"enable_sensitive_data"`

	Providers map[string]ProviderConfig `yaml:"providers"`
	Agents    map[string]AgentConfig    `yaml:"agents"`
}

// AgentDescriptors converts the agent section into runtime descriptors.
// Agents without their own timeout inherit the budget's agent timeout.
func (c *Config) AgentDescriptors() map[string]models.AgentDescriptor {
	out := make(map[string]models.AgentDescriptor, len(c.Agents))
	for name, a := range c.Agents {
		timeout := a.Timeout.Std()
		if timeout <= 0 {
			timeout = c.Budgets.AgentTimeout.Std()
		}
		out[name] = models.AgentDescriptor{
			Name:            name,
			Model:           a.Model,
			Provider:        a.Provider,
			Temperature:     a.Temperature,
			SystemPrompt:    a.SystemPrompt,
			Tools:           append([]string(nil), a.Tools...),
			Timeout:         timeout,
			MaxTokens:       a.MaxTokens,
			ReasoningEffort: models.ReasoningEffort(a.ReasoningEffort),
		}
	}
	return out
}

// AgentList returns the descriptors sorted by name, for components that need
// a stable order.
func (c *Config) AgentList() []models.AgentDescriptor {
	descriptors := c.AgentDescriptors()
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.AgentDescriptor, len(names))
	for i, name := range names {
		out[i] = descriptors[name]
	}
	return out
}
