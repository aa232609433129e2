package agent

import (
	"strings"
	"sync"
)

// Accumulator tracks streamed text for AGENT_DELTA events: one global running
// text across all agents of a run, plus a per-agent running text. Parallel
// agents append concurrently, so both views advance under one lock to keep
// the pair consistent within a single event.
type Accumulator struct {
	mu       sync.Mutex
	global   strings.Builder
	perAgent map[string]*strings.Builder
}

// NewAccumulator creates an empty accumulator for one run.
func NewAccumulator() *Accumulator {
	return &Accumulator{perAgent: make(map[string]*strings.Builder)}
}

// Append records a delta and returns the global and per-agent accumulated
// snapshots as of this delta.
func (a *Accumulator) Append(agentID, delta string) (global, agent string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.global.WriteString(delta)
	buf, ok := a.perAgent[agentID]
	if !ok {
		buf = &strings.Builder{}
		a.perAgent[agentID] = buf
	}
	buf.WriteString(delta)
	return a.global.String(), buf.String()
}

// AgentText returns the accumulated text for one agent.
func (a *Accumulator) AgentText(agentID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if buf, ok := a.perAgent[agentID]; ok {
		return buf.String()
	}
	return ""
}
