// Package v1 provides the public HTTP API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/hati/internal/service"
	"github.com/xiaot623/hati/internal/specialist"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	catalog *specialist.Catalog
}

// NewHandler creates a new handler. catalog backs the ambient track list.
func NewHandler(service *service.Service, catalog *specialist.Catalog) *Handler {
	return &Handler{
		service: service,
		catalog: catalog,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/chat", h.Chat)
	e.POST("/v1/feedback/:session_id", h.Feedback)
	e.GET("/v1/analytics/:session_id", h.Analytics)
	e.GET("/v1/sessions/:session_id/turns", h.GetSessionTurns)
	e.GET("/v1/music/tracks", h.AmbientTracks)
	e.POST("/v1/cleanup", h.Cleanup)

	e.GET("/health", h.Health)
	e.GET("/", h.Root)
}

// Root describes the service.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service":     "Hati",
		"version":     service.Version,
		"description": "Mood-aware conversational companion",
		"status":      "running",
	})
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Health(c.Request().Context()))
}

// AmbientTracks lists the streaming background sounds.
// GET /v1/music/tracks
func (h *Handler) AmbientTracks(c echo.Context) error {
	tracks := h.catalog.Music.Ambient
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tracks": tracks,
		"total":  len(tracks),
	})
}
