package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Analytics reports a session's mood history.
// GET /v1/analytics/:session_id
func (h *Handler) Analytics(c echo.Context) error {
	sessionID := c.Param("session_id")
	days := 30
	if d := c.QueryParam("days"); d != "" {
		val, err := strconv.Atoi(d)
		if err != nil || val <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "days must be a positive integer"})
		}
		days = val
	}

	report, err := h.service.Analytics(c.Request().Context(), sessionID, days)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}

// GetSessionTurns retrieves the recent turns of a session.
// GET /v1/sessions/:session_id/turns
func (h *Handler) GetSessionTurns(c echo.Context) error {
	sessionID := c.Param("session_id")
	limit := 10
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}

	turns, err := h.service.Turns(c.Request().Context(), sessionID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"turns":    turns,
		"has_more": len(turns) == limit, // Approximate
	})
}

// Cleanup deletes expired cache entries.
// POST /v1/cleanup
func (h *Handler) Cleanup(c echo.Context) error {
	deleted, err := h.service.Cleanup(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "cleanup_completed",
		"message": "Database cleaned up successfully",
		"deleted": deleted,
	})
}
