package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file, expands {{.VAR}} environment references,
// layers it over the built-in defaults, applies environment overrides, and
// validates the result. A missing file is not an error: the defaults plus
// environment overrides are used.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("No configuration file, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		var fileCfg Config
		if err := yaml.Unmarshal(ExpandEnv(data), &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging config: %w", err)
		}
		// Merged maps still need file entries to win outright, not field by
		// field; replace them wholesale when the file declares the section.
		if fileCfg.Agents != nil {
			cfg.Agents = fileCfg.Agents
		}
		if fileCfg.Providers != nil {
			cfg.Providers = fileCfg.Providers
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaults is the built-in configuration: a single writer agent on the
// default provider, conservative budgets, refinement off.
func defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Routing: RoutingConfig{
			CacheTTL:        Duration(10 * time.Minute),
			CacheMaxEntries: 1024,
			ConfigVersion:   "v1",
		},
		Budgets: BudgetConfig{
			MaxRounds:           15,
			MaxParallelAgents:   4,
			MaxRefinementRounds: 1,
			MaxIterations:       6,
			MaxTaskLength:       10000,
			AgentTimeout:        Duration(2 * time.Minute),
			RunTimeout:          Duration(10 * time.Minute),
		},
		Memory: MemoryConfig{
			RecentMessages: 10,
		},
		DefaultAgent: "writer",
		Agents: map[string]AgentConfig{
			"writer": {
				Model:        "gpt-4o-mini",
				SystemPrompt: "You are a capable general-purpose assistant. Answer clearly and concisely.",
			},
		},
	}
}

// validate applies the startup invariants.
func (c *Config) validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("config: at least one agent is required")
	}
	if c.DefaultAgent == "" {
		return fmt.Errorf("config: default_agent is required")
	}
	if _, ok := c.Agents[c.DefaultAgent]; !ok {
		return fmt.Errorf("config: default_agent %q is not a configured agent", c.DefaultAgent)
	}
	for name, a := range c.Agents {
		if a.Model == "" {
			return fmt.Errorf("config: agent %q has no model", name)
		}
		if a.Provider != "" {
			if _, ok := c.Providers[a.Provider]; !ok {
				return fmt.Errorf("config: agent %q references unknown provider %q", name, a.Provider)
			}
		}
	}
	if c.Budgets.MaxParallelAgents < 1 {
		return fmt.Errorf("config: max_parallel_agents must be at least 1")
	}
	if c.Budgets.MaxRounds < 1 {
		return fmt.Errorf("config: max_rounds must be at least 1")
	}
	return nil
}
