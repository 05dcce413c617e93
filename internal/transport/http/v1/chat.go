package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/hati/internal/domain"
)

// Chat processes one user message.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	result, err := h.service.Chat(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// Feedback records user feedback about a specialist result.
// POST /v1/feedback/:session_id
func (h *Handler) Feedback(c echo.Context) error {
	sessionID := c.Param("session_id")
	var req domain.FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.AgentType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "agent_type is required"})
	}
	if req.Feedback == "" {
		req.Feedback = "neutral"
	}

	if err := h.service.Feedback(c.Request().Context(), sessionID, req); err != nil {
		if errors.Is(err, domain.ErrUnknownAgent) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "feedback_received",
		"message": "Thank you for your feedback!",
	})
}
