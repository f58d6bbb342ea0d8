// Package server provides the web shell that hosts the sign-in screens and the OAuth callback.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/brizzai/clgmart/internal/auth"
	"github.com/brizzai/clgmart/internal/config"
	"github.com/brizzai/clgmart/internal/logger"
	"github.com/brizzai/clgmart/internal/server/handler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
	// readHeaderTimeout bounds slow clients
	readHeaderTimeout = 10 * time.Second
)

// ErrNotWebPlatform is returned when the web shell is started for a native configuration
var ErrNotWebPlatform = errors.New("the web shell requires platform.kind=web")

// Server hosts the web platform of the sign-in flow. Browser navigation is plain
// HTTP redirects and each callback request mounts its own session resolver.
type Server struct {
	config  *config.Config
	auth    *auth.Service
	handler *handler.Handler
}

// NewServer creates a new web shell for the given auth service.
func NewServer(cfg *config.Config, svc *auth.Service) *Server {
	if cfg == nil {
		logger.Fatal("Config cannot be nil")
	}
	if svc == nil {
		logger.Fatal("Auth service cannot be nil")
	}

	return &Server{
		config:  cfg,
		auth:    svc,
		handler: handler.NewHandler(svc),
	}
}

// Handler returns the HTTP handler with all routes and middleware
func (s *Server) Handler() http.Handler {
	return s.handler.CreateHTTPHandler()
}

// Start listens on the configured address until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if !s.auth.Environment().IsWeb() {
		return ErrNotWebPlatform
	}

	ln, err := net.Listen("tcp", s.config.ServerAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ServerAddr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	callbackURL, _ := s.auth.Environment().CallbackURL()
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		logger.Info("Starting web shell",
			zap.String("address", ln.Addr().String()),
			zap.String("callback_url", callbackURL),
			zap.String("provider", s.auth.Provider()),
		)

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down web shell",
			zap.Duration("timeout", shutdownTimeout),
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// Module provides the web shell dependencies
var Module = fx.Module("web_server",
	fx.Provide(
		NewServer,
	),
)
