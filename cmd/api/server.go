package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"inventory-service/pkg/container"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer *http.Server
}

func NewServer(c *container.Container) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + c.Config.App.Port,
			Handler:      NewRouter(c),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Run blocks until the server stops. A clean Shutdown is not an error.
func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
