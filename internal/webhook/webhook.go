// Package webhook exposes the trigger endpoint external automation
// hits after adding a torrent, so a new pack shows up without waiting
// for the next interval.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Triggerer requests an out-of-band reconciliation cycle.
// *orchestrator.Orchestrator satisfies it.
type Triggerer interface {
	Trigger()
}

// Server is the webhook HTTP listener.
type Server struct {
	echo   *echo.Echo
	port   int
	logger zerolog.Logger
}

// New creates the webhook server and wires its routes.
func New(trigger Triggerer, port int, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	log := logger.With().Str("component", "webhook").Logger()

	e.POST("/trigger", func(c echo.Context) error {
		log.Info().Str("remote", c.RealIP()).Msg("scan triggered via webhook")
		trigger.Trigger()
		return c.JSON(http.StatusOK, map[string]string{"status": "triggered"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{echo: e, port: port, logger: log}
}

// Start listens until Shutdown. It returns nil on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info().Int("port", s.port).Msg("webhook listener starting")
	err := s.echo.Start(fmt.Sprintf(":%d", s.port))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
