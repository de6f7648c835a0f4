// Package handlers provides the HTTP API handlers for the migration server.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loreline/loreline/internal/version"
)

// PingHandler serves the unauthenticated liveness endpoint.
type PingHandler struct{}

// NewPingHandler creates a ping handler.
func NewPingHandler() *PingHandler {
	return &PingHandler{}
}

// Register mounts the unauthenticated GET /ping and GET /health routes.
func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.GET("/health", h.Health)
}

// Ping returns pong and the server version.
func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "pong",
		"version": version.GetInfo(),
	})
}

// Health reports process liveness for load balancers.
func (h *PingHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
