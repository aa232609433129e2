package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/maestro-ai/maestro/pkg/events"
	"github.com/maestro-ai/maestro/pkg/session"
)

// wsConn serves one WebSocket client. The read loop owns frame dispatch; a
// pump goroutine forwards the active run's events. One run is active per
// connection at a time.
type wsConn struct {
	server *Server
	conn   *websocket.Conn
	log    *slog.Logger

	writeMu sync.Mutex

	mu  sync.Mutex
	run *session.Run
}

func newWSConn(s *Server, conn *websocket.Conn) *wsConn {
	return &wsConn{
		server: s,
		conn:   conn,
		log:    slog.With("component", "ws"),
	}
}

// serve runs the read loop until the connection closes. On exit the active
// run, if any, is cancelled: this connection is its only stream consumer.
func (w *wsConn) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		if run := w.activeRun(); run != nil {
			_ = w.server.sessions.Cancel(run.ID)
		}
		_ = w.conn.Close(websocket.StatusNormalClosure, "")
	}()

	w.sendControl(ctx, events.ControlFrame{Type: events.ServerConnected})

	for {
		_, data, err := w.conn.Read(ctx)
		if err != nil {
			return
		}

		var msg events.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			w.sendError(ctx, "malformed frame")
			continue
		}
		if err := msg.Validate(); err != nil {
			w.sendError(ctx, err.Error())
			continue
		}
		w.dispatch(ctx, &msg)
	}
}

// dispatch handles one validated client frame.
func (w *wsConn) dispatch(ctx context.Context, msg *events.ClientMessage) {
	switch msg.Type {
	case events.ClientTask, events.ClientResume:
		w.startRun(ctx, msg)

	case events.ClientResponse:
		run := w.activeRun()
		if run == nil {
			w.sendError(ctx, "no active run")
			return
		}
		if err := w.server.sessions.SubmitResponse(run.ID, msg.RequestID, msg.Payload); err != nil {
			w.sendError(ctx, err.Error())
		}

	case events.ClientCancel:
		run := w.activeRun()
		if run == nil {
			w.sendError(ctx, "no active run")
			return
		}
		_ = w.server.sessions.Cancel(run.ID)

	case events.ClientPing:
		w.sendControl(ctx, events.ControlFrame{Type: events.ServerPong})
	}
}

// startRun starts or resumes a run and launches its event pump.
func (w *wsConn) startRun(ctx context.Context, msg *events.ClientMessage) {
	w.mu.Lock()
	if w.run != nil && !w.run.Status().Terminal() {
		w.mu.Unlock()
		w.sendError(ctx, "a run is already active on this connection")
		return
	}
	w.mu.Unlock()

	run, err := w.server.sessions.Start(ctx, session.StartInput{
		Message:             msg.Message,
		ConversationID:      msg.ConversationID,
		ReasoningEffort:     msg.ReasoningEffort,
		EnableCheckpointing: msg.EnableCheckpointing,
		CheckpointID:        msg.CheckpointID,
	})
	if err != nil {
		w.sendError(ctx, err.Error())
		return
	}

	w.mu.Lock()
	w.run = run
	w.mu.Unlock()

	go w.pump(ctx, run)
}

// pump forwards the run's ordered events to the client until the stream
// latches. A write failure cancels the run; the drain continues so the
// supervisor goroutine is never blocked on a dead consumer.
func (w *wsConn) pump(ctx context.Context, run *session.Run) {
	dead := false
	for e := range run.Events() {
		if dead {
			continue
		}
		frame, err := events.EncodeWS(e)
		if err != nil {
			w.log.Warn("Dropping unencodable event", "run_id", run.ID, "error", err)
			continue
		}
		if err := w.write(ctx, frame); err != nil {
			_ = w.server.sessions.Cancel(run.ID)
			dead = true
		}
	}
}

func (w *wsConn) activeRun() *session.Run {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.run
}

func (w *wsConn) sendControl(ctx context.Context, frame events.ControlFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err := w.write(ctx, data); err != nil {
		w.log.Warn("Failed to send control frame", "error", err)
	}
}

func (w *wsConn) sendError(ctx context.Context, message string) {
	w.sendControl(ctx, events.ControlFrame{Type: events.ServerError, Message: message})
}

// write sends one text frame with a bounded write timeout.
func (w *wsConn) write(ctx context.Context, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return w.conn.Write(writeCtx, websocket.MessageText, data)
}
