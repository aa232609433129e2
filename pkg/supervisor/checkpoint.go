package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maestro-ai/maestro/pkg/agent"
	"github.com/maestro-ai/maestro/pkg/events"
	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/store"
)

// outputRecorder tees run events to the real publisher while snapshotting
// each completed agent's accumulated output. The snapshot is what a
// checkpoint captures at a HITL boundary.
type outputRecorder struct {
	inner agent.Publisher
	acc   *agent.Accumulator

	mu      sync.Mutex
	outputs map[string]string
}

func newOutputRecorder(inner agent.Publisher, acc *agent.Accumulator) *outputRecorder {
	return &outputRecorder{
		inner:   inner,
		acc:     acc,
		outputs: make(map[string]string),
	}
}

// Publish implements agent.Publisher.
func (r *outputRecorder) Publish(e events.Event) bool {
	if done, ok := e.(*events.AgentCompleted); ok && !done.Failed {
		r.mu.Lock()
		r.outputs[done.AgentID] = r.acc.AgentText(done.AgentID)
		r.mu.Unlock()
	}
	if r.inner == nil {
		return true
	}
	return r.inner.Publish(e)
}

func (r *outputRecorder) snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.outputs))
	for k, v := range r.outputs {
		out[k] = v
	}
	return out
}

// checkpointer wraps the session responder. Before blocking on a HITL
// request it saves a checkpoint, so a client that disconnects instead of
// answering can resume the run later. The checkpoint id is surfaced on the
// stream alongside the request.
type checkpointer struct {
	inner    agent.Responder
	store    store.CheckpointStore
	pub      agent.Publisher
	recorder *outputRecorder

	runID          string
	conversationID string
	task           models.Task

	mu       sync.Mutex
	decision models.RoutingDecision
}

func (c *checkpointer) setDecision(d models.RoutingDecision) {
	c.mu.Lock()
	c.decision = d
	c.mu.Unlock()
}

// Await implements agent.Responder.
func (c *checkpointer) Await(ctx context.Context, req models.PendingRequest) (map[string]any, error) {
	c.mu.Lock()
	cp := models.Checkpoint{
		RunID:          c.runID,
		ConversationID: c.conversationID,
		Task:           c.task,
		Routing:        c.decision,
		Outputs:        c.recorder.snapshot(),
		Pending:        req,
		CreatedAt:      time.Now().UTC(),
	}
	c.mu.Unlock()

	id, err := c.store.Save(ctx, cp)
	if err != nil {
		slog.Warn("Saving checkpoint failed", "run_id", c.runID, "error", err)
	} else {
		publish(c.pub, events.NewOrchestratorMessage(events.KindRequest, events.StatusStarted, map[string]any{
			"request_id":    req.RequestID,
			"checkpoint_id": id,
		}))
	}
	return c.inner.Await(ctx, req)
}
