package llm

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ProviderConfig declares one provider endpoint.
type ProviderConfig struct {
	Name      string        `yaml:"name"`
	Type      string        `yaml:"type"` // openai, anthropic
	APIKeyEnv string        `yaml:"api_key_env"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// NewClientFromConfig constructs the provider-specific client.
func NewClientFromConfig(cfg ProviderConfig) (Client, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if cfg.APIKeyEnv != "" && apiKey == "" {
		return nil, fmt.Errorf("provider %s: environment variable %s is not set", cfg.Name, cfg.APIKeyEnv)
	}

	switch cfg.Type {
	case "openai":
		return NewOpenAIClient(apiKey, cfg.BaseURL, cfg.Timeout), nil
	case "anthropic":
		return NewAnthropicClient(apiKey, cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("provider %s: unknown type %q", cfg.Name, cfg.Type)
	}
}

// Registry maps provider names to clients. Populated once at startup.
type Registry struct {
	mu          sync.RWMutex
	clients     map[string]Client
	defaultName string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register adds a named client. The first registration becomes the default.
func (r *Registry) Register(name string, client Client) error {
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	r.clients[name] = client
	if r.defaultName == "" {
		r.defaultName = name
	}
	return nil
}

// Get returns the named client; an empty name selects the default.
func (r *Registry) Get(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultName
	}
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not registered", name)
	}
	return client, nil
}

// Close releases every registered client.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for name, c := range r.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing provider %s: %w", name, err)
		}
	}
	return firstErr
}
