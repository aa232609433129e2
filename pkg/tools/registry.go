package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/maestro-ai/maestro/pkg/models"
)

// resultCacheSize bounds each per-tool result cache.
const resultCacheSize = 512

type entry struct {
	desc   Descriptor
	schema *jsonschema.Schema
	cache  *lru.LRU[string, Result]
	order  int
}

// Registry resolves tool names (and aliases) to invokers and answers
// capability queries for routing. Registration is one-shot at startup;
// lookups are read-mostly and safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	aliases map[string]string
	nextOrd int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		aliases: make(map[string]string),
	}
}

// Register adds a tool. Duplicate names and alias collisions are rejected.
func (r *Registry) Register(desc Descriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if desc.Invoker == nil {
		return fmt.Errorf("tool %s: invoker is required", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("tool %s already registered", desc.Name)
	}
	if canonical, exists := r.aliases[desc.Name]; exists {
		return fmt.Errorf("tool name %s collides with alias of %s", desc.Name, canonical)
	}
	for _, alias := range desc.Aliases {
		if _, exists := r.entries[alias]; exists {
			return fmt.Errorf("tool %s: alias %s collides with a registered tool", desc.Name, alias)
		}
		if canonical, exists := r.aliases[alias]; exists {
			return fmt.Errorf("tool %s: alias %s already points to %s", desc.Name, alias, canonical)
		}
	}

	e := &entry{desc: desc, order: r.nextOrd}
	r.nextOrd++

	if len(desc.Schema) > 0 {
		schema, err := compileSchema(desc.Name, desc.Schema)
		if err != nil {
			return fmt.Errorf("tool %s: invalid input schema: %w", desc.Name, err)
		}
		e.schema = schema
	}
	if desc.ResultTTL > 0 {
		e.cache = lru.NewLRU[string, Result](resultCacheSize, nil, desc.ResultTTL)
	}

	r.entries[desc.Name] = e
	for _, alias := range desc.Aliases {
		r.aliases[alias] = desc.Name
	}
	return nil
}

func compileSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	url := "maestro://tools/" + name + ".json"
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// Resolve maps a name or alias to its canonical name.
func (r *Registry) Resolve(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.entries[name]; ok {
		return name, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return canonical, true
	}
	return "", false
}

// Has reports whether a tool (by name or alias) is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Resolve(name)
	return ok
}

// Names returns all canonical tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	ordered := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		ordered = append(ordered, e)
	}
	sortByOrder(ordered)
	names := make([]string, len(ordered))
	for i, e := range ordered {
		names[i] = e.desc.Name
	}
	return names
}

// ByCapability returns the tools providing the capability, in registration order.
func (r *Registry) ByCapability(capability string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*entry, 0, 4)
	for _, e := range r.entries {
		for _, c := range e.desc.Capabilities {
			if c == capability {
				matched = append(matched, e)
				break
			}
		}
	}
	sortByOrder(matched)
	names := make([]string, len(matched))
	for i, e := range matched {
		names[i] = e.desc.Name
	}
	return names
}

// Describe returns the routing projection for every tool, in registration order.
func (r *Registry) Describe() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ordered := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		ordered = append(ordered, e)
	}
	sortByOrder(ordered)

	infos := make([]Info, len(ordered))
	for i, e := range ordered {
		infos[i] = Info{
			Name:         e.desc.Name,
			Capabilities: e.desc.Capabilities,
			LatencyHint:  e.desc.LatencyHint,
			ResultTTLMs:  e.desc.ResultTTL.Milliseconds(),
		}
	}
	return infos
}

// Declarations returns the function-calling projection for the named tools.
// Names resolve through aliases; unknown names are skipped.
func (r *Registry) Declarations(names []string) []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Declaration, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		canonical := name
		if _, ok := r.entries[canonical]; !ok {
			canonical = r.aliases[name]
		}
		e, ok := r.entries[canonical]
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, Declaration{
			Name:        e.desc.Name,
			Description: e.desc.Description,
			Schema:      e.desc.Schema,
		})
	}
	return out
}

// Invoke validates input against the tool's schema, applies the tool timeout,
// and serves cached results when the descriptor enables result caching.
// Failures come back as *models.ToolError; they are never fatal to the run.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]any) (Result, error) {
	canonical, ok := r.Resolve(name)
	if !ok {
		return Result{}, &models.ToolError{Tool: name, Reason: "not registered"}
	}

	r.mu.RLock()
	e := r.entries[canonical]
	r.mu.RUnlock()

	if e.schema != nil {
		if err := e.schema.Validate(normalizeForSchema(input)); err != nil {
			return Result{}, &models.ToolError{Tool: canonical, Reason: "input rejected by schema", Err: err}
		}
	}

	var cacheKey string
	if e.cache != nil {
		cacheKey = inputFingerprint(canonical, input)
		if cached, ok := e.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	timeout := e.desc.Timeout
	if timeout <= 0 {
		timeout = DefaultInvokeTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := e.desc.Invoker.Invoke(callCtx, input)
	if err != nil {
		// Suspensions pass through untouched so the agent runner can
		// raise a REQUEST; everything else becomes a ToolError.
		var susp *Suspension
		if errors.As(err, &susp) {
			return Result{}, err
		}
		slog.Warn("Tool invocation failed", "tool", canonical, "error", err)
		return Result{}, &models.ToolError{Tool: canonical, Reason: "invocation failed", Err: err}
	}

	if e.cache != nil {
		e.cache.Add(cacheKey, result)
	}
	return result, nil
}

// inputFingerprint produces a stable cache key from the canonical name plus
// the JSON form of the input (map keys marshal in sorted order).
func inputFingerprint(name string, input map[string]any) string {
	data, err := json.Marshal(input)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", input))
	}
	h := xxhash.New()
	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())
}

// normalizeForSchema round-trips the input through JSON so numeric types
// match what the schema validator expects.
func normalizeForSchema(input map[string]any) any {
	data, err := json.Marshal(input)
	if err != nil {
		return input
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return input
	}
	return v
}

func sortByOrder(entries []*entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })
}
