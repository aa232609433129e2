package api

import (
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/maestro-ai/maestro/pkg/events"
	"github.com/maestro-ai/maestro/pkg/session"
)

// streamHandler handles POST /api/v1/stream: it starts a run and streams its
// events as Server-Sent Events until the terminal event. SSE is request-only
// for HITL; responses arrive via POST /api/v1/runs/:id/respond.
func (s *Server) streamHandler(c *echo.Context) error {
	var req streamRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	run, err := s.sessions.Start(c.Request().Context(), session.StartInput{
		Message:             req.Message,
		ConversationID:      req.ConversationID,
		ReasoningEffort:     req.ReasoningEffort,
		EnableCheckpointing: req.EnableCheckpointing,
		CheckpointID:        req.CheckpointID,
	})
	if err != nil {
		return mapError(err)
	}

	h := c.Response().Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Run-Id", run.ID)
	c.Response().WriteHeader(http.StatusOK)
	rc := http.NewResponseController(c.Response())

	ctx := c.Request().Context()
	for {
		select {
		case e, ok := <-run.Events():
			if !ok {
				return nil
			}
			frame, err := events.EncodeSSE(e)
			if err != nil {
				slog.Warn("Dropping unencodable event", "run_id", run.ID, "error", err)
				continue
			}
			if _, err := c.Response().Write(frame); err != nil {
				s.abortStream(run)
				return nil
			}
			_ = rc.Flush()
		case <-ctx.Done():
			s.abortStream(run)
			return nil
		}
	}
}

// abortStream cancels a run whose SSE consumer went away and drains the
// stream so the supervisor goroutine can publish its terminal event.
func (s *Server) abortStream(run *session.Run) {
	_ = s.sessions.Cancel(run.ID)
	go func() {
		for range run.Events() {
		}
	}()
}
