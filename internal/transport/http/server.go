// Package http provides the HTTP server implementation for hati.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/hati/internal/service"
	"github.com/xiaot623/hati/internal/specialist"
	v1 "github.com/xiaot623/hati/internal/transport/http/v1"
)

// Options configures the server beyond its handlers.
type Options struct {
	// AllowOrigins are the CORS origins besides the local dev servers.
	AllowOrigins []string
	// WebSocket serves /ws when set.
	WebSocket echo.HandlerFunc
}

// NewServer creates and configures the HTTP server.
func NewServer(svc *service.Service, catalog *specialist.Catalog, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     append([]string{"http://localhost:3000", "http://localhost:8080"}, opts.AllowOrigins...),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: true,
	}))

	// Handlers
	v1Handler := v1.NewHandler(svc, catalog)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	if opts.WebSocket != nil {
		e.GET("/ws", opts.WebSocket)
	}

	return e
}
