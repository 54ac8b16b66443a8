package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Read-only API
	s.echo.GET("/api/wins", s.handleRecentWins)
	s.echo.GET("/api/online", s.handleOnlineCount)

	// WebSocket endpoint
	s.echo.GET("/ws", s.handleWebSocket)

	// Client UI
	s.echo.Static("/", s.config.StaticDir)
}
