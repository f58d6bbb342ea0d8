package providers

import (
	"context"

	"github.com/brizzai/clgmart/internal/auth/models"
)

// AuthStateListener receives auth-state changes. session is nil after sign-out.
type AuthStateListener func(event models.AuthEvent, session *models.Session)

// Backend is the slice of the hosted auth service the sign-in flow depends on.
// Implementations own session storage; callers never mutate it directly.
type Backend interface {
	// SignInWithOAuth returns the provider authorization URL for the given options
	SignInWithOAuth(ctx context.Context, provider string, opts models.OAuthOptions) (string, error)

	// ExchangeCodeForSession trades an authorization code for a session and stores it
	ExchangeCodeForSession(ctx context.Context, code string) (*models.Session, error)

	// GetSession returns the stored session, or nil when signed out
	GetSession(ctx context.Context) (*models.Session, error)

	// OnAuthStateChange registers fn and returns a function that removes it
	OnAuthStateChange(fn AuthStateListener) (unsubscribe func())
}

// AccountBackend adds the password and email-verification operations used by the sign-in and sign-up screens
type AccountBackend interface {
	Backend

	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.SignUpResult, error)
	ResendSignUpEmail(ctx context.Context, email, redirectTo string) error
	GetUser(ctx context.Context) (*models.User, error)
	SignOut(ctx context.Context) error
}
