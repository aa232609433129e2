package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// listConversationsHandler handles GET /api/v1/conversations.
func (s *Server) listConversationsHandler(c *echo.Context) error {
	if s.conversations == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "conversation store not available")
	}
	summaries, err := s.conversations.List(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, summaries)
}

// createConversationHandler handles POST /api/v1/conversations.
func (s *Server) createConversationHandler(c *echo.Context) error {
	if s.conversations == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "conversation store not available")
	}
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	conv, err := s.conversations.Create(c.Request().Context(), req.Title)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, conv)
}

// getConversationHandler handles GET /api/v1/conversations/:id.
func (s *Server) getConversationHandler(c *echo.Context) error {
	if s.conversations == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "conversation store not available")
	}
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	conv, err := s.conversations.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, conv)
}
