// Package authtest provides in-memory doubles for the auth flow collaborators.
package authtest

import (
	"context"
	"errors"
	"sync"

	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/auth/providers"
)

// ErrInvalidCode is returned by Backend for codes it does not know
var ErrInvalidCode = errors.New("invalid flow state, no valid flow state found")

// Backend is a scriptable providers.Backend.
// Codes listed in ValidCodes exchange into a session for User; each works once.
type Backend struct {
	mu sync.Mutex

	OAuthURL   string
	OAuthErr   error
	ValidCodes map[string]bool
	User       *models.User
	SessionErr error

	// ExchangeHook, when set, runs before an exchange returns (used to hold calls in flight)
	ExchangeHook func(code string)

	session        *models.Session
	nextID         int
	listeners      map[int]providers.AuthStateListener
	OAuthCalls     []OAuthCall
	ExchangeCalls  []string
	GetSessionHits int
}

// OAuthCall records one SignInWithOAuth invocation
type OAuthCall struct {
	Provider string
	Options  models.OAuthOptions
}

// NewBackend returns a Backend that accepts the given codes
func NewBackend(codes ...string) *Backend {
	valid := make(map[string]bool, len(codes))
	for _, c := range codes {
		valid[c] = true
	}
	return &Backend{
		OAuthURL:   "https://abc.supabase.co/auth/v1/authorize?provider=google",
		ValidCodes: valid,
		User:       &models.User{ID: "user-1", Email: "student@clgmart.app"},
		listeners:  make(map[int]providers.AuthStateListener),
	}
}

func (b *Backend) SignInWithOAuth(_ context.Context, provider string, opts models.OAuthOptions) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.OAuthCalls = append(b.OAuthCalls, OAuthCall{Provider: provider, Options: opts})
	if b.OAuthErr != nil {
		return "", b.OAuthErr
	}
	return b.OAuthURL, nil
}

func (b *Backend) ExchangeCodeForSession(_ context.Context, code string) (*models.Session, error) {
	b.mu.Lock()
	b.ExchangeCalls = append(b.ExchangeCalls, code)
	hook := b.ExchangeHook
	b.mu.Unlock()

	if hook != nil {
		hook(code)
	}

	b.mu.Lock()
	if !b.ValidCodes[code] {
		b.mu.Unlock()
		return nil, ErrInvalidCode
	}
	delete(b.ValidCodes, code)
	session := b.newSessionLocked()
	b.session = session
	b.mu.Unlock()

	b.Emit(models.EventSignedIn, session)
	return session, nil
}

func (b *Backend) GetSession(_ context.Context) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.GetSessionHits++
	if b.SessionErr != nil {
		return nil, b.SessionErr
	}
	return b.session, nil
}

func (b *Backend) OnAuthStateChange(fn providers.AuthStateListener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// SetSession stores a signed-in session without emitting an event
func (b *Backend) SetSession() *models.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = b.newSessionLocked()
	return b.session
}

// Session returns the stored session
func (b *Backend) Session() *models.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// Emit notifies every listener, outside the lock
func (b *Backend) Emit(event models.AuthEvent, session *models.Session) {
	b.mu.Lock()
	fns := make([]providers.AuthStateListener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

// Listeners returns the number of active subscriptions
func (b *Backend) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Exchanges returns a copy of the codes passed to ExchangeCodeForSession
func (b *Backend) Exchanges() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ExchangeCalls...)
}

func (b *Backend) newSessionLocked() *models.Session {
	return &models.Session{
		AccessToken:  "access-token",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		RefreshToken: "refresh-token",
		User:         b.User,
	}
}

var _ providers.Backend = (*Backend)(nil)
