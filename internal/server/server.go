package server

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/oblom298-png/mellcazik/internal/config"
	apperrors "github.com/oblom298-png/mellcazik/internal/errors"
	"github.com/oblom298-png/mellcazik/internal/hub"
)

const (
	maxConnectionsPerIP  = 10
	connectionsPerSecond = 10.0
	connectionBurst      = 10
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	hub       *hub.Hub
	limits    *AdmissionLimits
	startTime time.Time
}

func NewServer(cfg *config.Config, h *hub.Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		hub:       h,
		limits:    NewAdmissionLimits(maxConnectionsPerIP, connectionsPerSecond, connectionBurst),
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Start binds on all interfaces at the configured port and serves until
// Shutdown is called.
func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
