package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/stretchr/testify/assert"
)

type sessionFunc func(ctx context.Context) (*models.Session, error)

func (f sessionFunc) Session(ctx context.Context) (*models.Session, error) {
	return f(ctx)
}

func TestRequireSession(t *testing.T) {
	signedIn := &models.Session{AccessToken: "a", User: &models.User{ID: "user-1"}}

	tests := []struct {
		name         string
		session      *models.Session
		err          error
		wantStatus   int
		wantLocation string
	}{
		{"signed in", signedIn, nil, http.StatusNoContent, ""},
		{"signed out", nil, nil, http.StatusSeeOther, "/auth/sign-in"},
		{"session without user", &models.Session{AccessToken: "a"}, nil, http.StatusSeeOther, "/auth/sign-in"},
		{"lookup failure", nil, errors.New("storage unavailable"), http.StatusSeeOther, "/auth/sign-in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *models.Session
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = SessionFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})
			source := sessionFunc(func(context.Context) (*models.Session, error) { return tt.session, tt.err })

			rec := httptest.NewRecorder()
			RequireSession(source)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/home", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			if tt.wantStatus == http.StatusNoContent {
				assert.Same(t, tt.session, seen)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestSessionFromContext_Empty(t *testing.T) {
	assert.Nil(t, SessionFromContext(context.Background()))
}

func TestLogging_PassesStatusThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	Logging(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?code=secret", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORS(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	rec := httptest.NewRecorder()
	CORS(next).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/auth/sign-in", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	CORS(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/sign-in", nil))
	assert.True(t, called)
}
