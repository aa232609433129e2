package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides layers operational environment variables over the merged
// configuration. These cover the knobs operators flip without editing YAML.
func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Budgets.MaxRounds, "MAX_ROUNDS")
	setInt(&cfg.Budgets.MaxParallelAgents, "MAX_PARALLEL_AGENTS")
	setInt(&cfg.Budgets.MaxRefinementRounds, "MAX_REFINEMENT_ROUNDS")
	setInt(&cfg.Routing.CacheMaxEntries, "ROUTING_CACHE_MAX_ENTRIES")

	if v := os.Getenv("ROUTING_CACHE_TTL_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			cfg.Routing.CacheTTL = Duration(time.Duration(ms) * time.Millisecond)
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
	if v := os.Getenv("ENABLE_SENSITIVE_DATA"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EnableSensitiveData = b
		}
	}
	setString(&cfg.DefaultAgent, "DEFAULT_AGENT")
	setString(&cfg.Reasoner.Artifact, "REASONER_ARTIFACT")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Checkpoints.Dir, "CHECKPOINT_DIR")
	setString(&cfg.Server.Addr, "LISTEN_ADDR")
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
