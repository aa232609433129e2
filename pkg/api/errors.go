package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/maestro-ai/maestro/pkg/models"
)

// mapError maps runtime errors to HTTP error responses.
func mapError(err error) *echo.HTTPError {
	if models.IsInvalidInput(err) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if errors.Is(err, models.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if errors.Is(err, models.ErrUnknownRequest) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown request id")
	}
	if errors.Is(err, models.ErrRequestResolved) {
		return echo.NewHTTPError(http.StatusConflict, "request already resolved")
	}

	slog.Error("Unexpected handler error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
