package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/logger"
	"go.uber.org/zap"
)

// sessionContextKey is the key type for the context
type sessionContextKey string

const (
	// SessionContextKey is used to store the session in the request context
	SessionContextKey sessionContextKey = "session"
)

// SessionSource returns the current session, nil when signed out
type SessionSource interface {
	Session(ctx context.Context) (*models.Session, error)
}

// RequireSession sends visitors without a signed-in session to the sign-in screen
func RequireSession(source SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := source.Session(r.Context())
			if err != nil {
				logger.Warn("session lookup failed", zap.String("path", r.URL.Path), zap.Error(err))
			}
			if !session.Authenticated() {
				http.Redirect(w, r, string(models.DestinationSignIn), http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session stored by RequireSession
func SessionFromContext(ctx context.Context) *models.Session {
	session, _ := ctx.Value(SessionContextKey).(*models.Session)
	return session
}

// CORS middleware for the web shell
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Logging logs one line per request. Query strings are left out since callbacks carry codes.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}
