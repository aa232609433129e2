package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"
)

// defaultHistoryLimit bounds GET /api/v1/history when no limit is given.
const defaultHistoryLimit = 50

// getRunHandler handles GET /api/v1/runs/:id.
func (s *Server) getRunHandler(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "run id is required")
	}
	run, err := s.sessions.Get(id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, newRunStatusResponse(run))
}

// respondHandler handles POST /api/v1/runs/:id/respond, the HITL side-channel
// for SSE clients.
func (s *Server) respondHandler(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "run id is required")
	}
	var req respondRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RequestID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "requestId is required")
	}
	if err := s.sessions.SubmitResponse(id, req.RequestID, req.Payload); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "accepted"})
}

// cancelRunHandler handles POST /api/v1/runs/:id/cancel. Idempotent.
func (s *Server) cancelRunHandler(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "run id is required")
	}
	if err := s.sessions.Cancel(id); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelling"})
}

// historyHandler handles GET /api/v1/history.
func (s *Server) historyHandler(c *echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run history not available")
	}
	limit := defaultHistoryLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
		limit = n
	}
	records, err := s.history.List(c.Request().Context(), limit)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, records)
}
