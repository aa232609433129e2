// Package session owns per-run state: the cancel signal, the pending HITL
// request map, the outbound event stream, and checkpoint binding at start.
// Transports talk to the Manager; the supervisor never sees a session.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maestro-ai/maestro/pkg/events"
	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/store"
	"github.com/maestro-ai/maestro/pkg/supervisor"
)

// pendingRequest is one in-flight HITL request. The channel has capacity 1 so
// SubmitResponse never blocks on the run.
type pendingRequest struct {
	req      models.PendingRequest
	ch       chan map[string]any
	resolved bool
}

// Run is the per-run object graph. All mutation goes through its mutex; the
// supervisor goroutine and transport goroutines share it.
type Run struct {
	ID             string
	ConversationID string
	StartedAt      time.Time

	stream *events.Stream
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	status      models.RunStatus
	pending     map[string]*pendingRequest
	result      models.WorkflowResult
	err         error
	completedAt time.Time
}

// Events returns the run's outbound stream. Exactly one consumer must drain it.
func (r *Run) Events() <-chan events.Event { return r.stream.Events() }

// Done closes when the run reaches a terminal status.
func (r *Run) Done() <-chan struct{} { return r.done }

// Status returns the current lifecycle status.
func (r *Run) Status() models.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Result returns the terminal outcome. Valid only after Done closes.
func (r *Run) Result() (models.WorkflowResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.err
}

// setStatus latches terminal statuses.
func (r *Run) setStatus(s models.RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = s
}

// StartInput describes a session start frame. Message and CheckpointID are
// mutually exclusive; exactly one must be set.
type StartInput struct {
	Message             string
	ConversationID      string
	ReasoningEffort     models.ReasoningEffort
	EnableCheckpointing bool
	CheckpointID        string
}

// Config bounds the manager.
type Config struct {
	MaxTaskLength int
	StreamBuffer  int
}

// Manager creates runs, routes HITL responses by request id, and owns the
// run table. Safe for concurrent use.
type Manager struct {
	sup         *supervisor.Supervisor
	checkpoints store.CheckpointStore
	cfg         Config
	log         *slog.Logger

	mu   sync.Mutex
	runs map[string]*Run
}

// NewManager wires a manager. checkpoints may be nil; resume then fails with
// InvalidInput.
func NewManager(sup *supervisor.Supervisor, checkpoints store.CheckpointStore, cfg Config) *Manager {
	return &Manager{
		sup:         sup,
		checkpoints: checkpoints,
		cfg:         cfg,
		log:         slog.With("component", "session"),
		runs:        make(map[string]*Run),
	}
}

// Start validates the start frame, creates the run, and launches the
// supervisor in its own goroutine. The returned run's stream must be drained
// by the caller.
func (m *Manager) Start(ctx context.Context, in StartInput) (*Run, error) {
	if in.Message != "" && in.CheckpointID != "" {
		return nil, models.NewInvalidInput("message and checkpointId are mutually exclusive")
	}
	if in.Message == "" && in.CheckpointID == "" {
		return nil, models.NewInvalidInput("either message or checkpointId is required")
	}

	var task models.Task
	var checkpoint *models.Checkpoint
	if in.CheckpointID != "" {
		if m.checkpoints == nil {
			return nil, models.NewInvalidInput("checkpointing is not enabled")
		}
		cp, err := m.checkpoints.Load(ctx, in.CheckpointID)
		if err != nil {
			return nil, err
		}
		checkpoint = &cp
		task = cp.Task
	} else {
		var err error
		task, err = models.NewTask(in.Message, m.cfg.MaxTaskLength)
		if err != nil {
			return nil, err
		}
		task.ConversationID = in.ConversationID
		task.ReasoningEffort = in.ReasoningEffort
	}

	// V7 so run ids sort by creation time.
	runID := uuid.Must(uuid.NewV7()).String()
	runCtx, cancel := context.WithCancel(context.Background())
	run := &Run{
		ID:             runID,
		ConversationID: in.ConversationID,
		StartedAt:      time.Now().UTC(),
		stream:         events.NewStream(runID, m.cfg.StreamBuffer),
		cancel:         cancel,
		done:           make(chan struct{}),
		status:         models.RunRunning,
		pending:        make(map[string]*pendingRequest),
	}
	if run.ConversationID == "" && checkpoint != nil {
		run.ConversationID = checkpoint.ConversationID
	}

	m.mu.Lock()
	m.runs[runID] = run
	m.mu.Unlock()

	go m.drive(runCtx, run, supervisor.RunInput{
		RunID:               runID,
		Task:                task,
		ConversationID:      run.ConversationID,
		EnableCheckpointing: in.EnableCheckpointing,
		Checkpoint:          checkpoint,
		Responder:           &runResponder{run: run},
	})
	return run, nil
}

// drive runs the supervisor to completion and records the terminal outcome.
func (m *Manager) drive(ctx context.Context, run *Run, in supervisor.RunInput) {
	result, err := m.sup.Run(ctx, in, run.stream)

	status := models.RunSucceeded
	if err != nil {
		status = models.RunFailed
		if models.CodeFor(err) == models.CodeCancelled {
			status = models.RunCancelled
		}
	}

	run.mu.Lock()
	run.result = result
	run.err = err
	run.status = status
	run.completedAt = time.Now().UTC()
	run.mu.Unlock()

	// The supervisor publishes the terminal event; Abandon only covers the
	// pathological case of an early panic-free exit without one.
	if !run.stream.Latched() {
		run.stream.Abandon()
	}
	close(run.done)
}

// Get returns the run for id.
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return run, nil
}

// Cancel trips the run's cancel signal. Idempotent; terminal runs are a no-op.
func (m *Manager) Cancel(id string) error {
	run, err := m.Get(id)
	if err != nil {
		return err
	}
	run.cancel()
	return nil
}

// SubmitResponse resolves a pending HITL request by id. Unknown ids and
// already-resolved requests are rejected without affecting the run.
func (m *Manager) SubmitResponse(runID, requestID string, payload map[string]any) error {
	run, err := m.Get(runID)
	if err != nil {
		return err
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	p, ok := run.pending[requestID]
	if !ok {
		return models.ErrUnknownRequest
	}
	if p.resolved {
		return models.ErrRequestResolved
	}
	p.resolved = true
	p.ch <- payload
	if !run.status.Terminal() {
		run.status = models.RunRunning
	}
	return nil
}

// Release drops a terminal run from the table. Releasing a live run is
// rejected so its stream consumer is never orphaned.
func (m *Manager) Release(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return models.ErrNotFound
	}
	if !run.Status().Terminal() {
		return models.NewInvalidInput("run is still active")
	}
	delete(m.runs, id)
	return nil
}

// Sweep removes terminal runs that completed before the cutoff and returns
// how many were dropped.
func (m *Manager) Sweep(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, run := range m.runs {
		run.mu.Lock()
		expired := run.status.Terminal() && !run.completedAt.IsZero() && run.completedAt.Before(cutoff)
		run.mu.Unlock()
		if expired {
			delete(m.runs, id)
			removed++
		}
	}
	return removed
}

// runResponder bridges the agent runner's Await to the session's pending map.
type runResponder struct {
	run *Run
}

// Await implements agent.Responder: it registers the request and blocks until
// SubmitResponse routes a payload to it or the run context ends.
func (r *runResponder) Await(ctx context.Context, req models.PendingRequest) (map[string]any, error) {
	p := &pendingRequest{req: req, ch: make(chan map[string]any, 1)}

	r.run.mu.Lock()
	r.run.pending[req.RequestID] = p
	if !r.run.status.Terminal() {
		r.run.status = models.RunNeedsResponse
	}
	r.run.mu.Unlock()

	select {
	case payload := <-p.ch:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
