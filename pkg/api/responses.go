package api

import (
	"time"

	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/routing"
	"github.com/maestro-ai/maestro/pkg/session"
)

// runStatusResponse is the GET /api/v1/runs/:id projection.
type runStatusResponse struct {
	RunID          string                 `json:"run_id"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Status         models.RunStatus       `json:"status"`
	StartedAt      time.Time              `json:"started_at"`
	Result         *models.WorkflowResult `json:"result,omitempty"`
	ErrorCode      models.ErrorCode       `json:"error_code,omitempty"`
}

func newRunStatusResponse(run *session.Run) runStatusResponse {
	resp := runStatusResponse{
		RunID:          run.ID,
		ConversationID: run.ConversationID,
		Status:         run.Status(),
		StartedAt:      run.StartedAt,
	}
	if resp.Status.Terminal() {
		result, err := run.Result()
		if err != nil {
			resp.ErrorCode = models.CodeFor(err)
		} else {
			resp.Result = &result
		}
	}
	return resp
}

// routingCacheResponse is the debug snapshot of the routing-decision cache.
type routingCacheResponse struct {
	Stats routing.Stats `json:"stats"`
	TTLMs int64         `json:"ttl_ms"`
}
