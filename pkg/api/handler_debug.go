package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// routingCacheHandler handles GET /api/v1/debug/routing-cache: effectiveness
// counters for the routing-decision cache. Counters only; cached task content
// is never exposed here.
func (s *Server) routingCacheHandler(c *echo.Context) error {
	if s.cache == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "routing cache not available")
	}
	return c.JSON(http.StatusOK, routingCacheResponse{
		Stats: s.cache.Stats(),
		TTLMs: s.cache.TTL().Milliseconds(),
	})
}
