// Package handler assembles the web shell's HTTP routes.
package handler

import (
	"net/http"

	"github.com/brizzai/clgmart/internal/auth"
	"github.com/brizzai/clgmart/internal/auth/handlers"
	"github.com/brizzai/clgmart/internal/auth/middleware"
	"github.com/brizzai/clgmart/internal/logger"
)

// Handler manages HTTP request handling and middleware configuration.
type Handler struct {
	auth *auth.Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(auth *auth.Service) *Handler {
	return &Handler{
		auth: auth,
	}
}

// CreateHTTPHandler registers the sign-in routes and wraps them with the middleware stack.
// The home screen requires a signed-in session.
func (h *Handler) CreateHTTPHandler() http.Handler {
	mux := http.NewServeMux()

	handlers.NewHandler(h.auth).RegisterRoutes(mux, middleware.RequireSession(h.auth))
	logger.Info("Registered authentication routes")

	return middleware.Logging(middleware.CORS(mux))
}
