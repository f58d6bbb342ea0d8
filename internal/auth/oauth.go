package auth

import (
	"context"
	"strings"

	"github.com/brizzai/clgmart/internal/auth/callback"
	"github.com/brizzai/clgmart/internal/auth/constants"
	"github.com/brizzai/clgmart/internal/auth/credentials"
	"github.com/brizzai/clgmart/internal/auth/initiator"
	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/auth/providers"
	"github.com/brizzai/clgmart/internal/auth/redirect"
	"github.com/brizzai/clgmart/internal/auth/resolver"
	"github.com/brizzai/clgmart/internal/config"
	"github.com/brizzai/clgmart/internal/logger"
	"go.uber.org/zap"
)

// Service wires the sign-in flow components around one backend client
type Service struct {
	env       redirect.Environment
	provider  string
	backend   providers.AccountBackend
	exchanger *callback.Exchanger
	initiator *initiator.Initiator
}

// NewService creates the auth service
func NewService(cfg *config.Config, backend providers.AccountBackend) *Service {
	env := redirect.NewEnvironment(cfg)
	exchanger := callback.NewExchanger(backend)

	provider := cfg.OAuth.Provider
	if provider == "" {
		provider = constants.DefaultProvider
	}

	return &Service{
		env:       env,
		provider:  provider,
		backend:   backend,
		exchanger: exchanger,
		initiator: initiator.New(env, backend, exchanger).WithScopes(cfg.OAuth.Scopes),
	}
}

// Environment returns the platform descriptor
func (s *Service) Environment() redirect.Environment {
	return s.env
}

// Provider returns the configured OAuth provider name
func (s *Service) Provider() string {
	return s.provider
}

// StartOAuth starts sign-in with the configured provider
func (s *Service) StartOAuth(ctx context.Context, browser initiator.Browser) error {
	return s.StartProviderOAuth(ctx, s.provider, browser)
}

// StartProviderOAuth starts sign-in with a named provider
func (s *Service) StartProviderOAuth(ctx context.Context, provider string, browser initiator.Browser) error {
	return s.initiator.Start(ctx, provider, browser)
}

// NewResolver creates a session resolver for one screen
func (s *Service) NewResolver(nav resolver.Navigator, alerts resolver.Alerter) *resolver.Resolver {
	return resolver.New(s.backend, s.exchanger, nav, alerts)
}

// ExchangeCode exchanges the code on a returned URL, if any
func (s *Service) ExchangeCode(ctx context.Context, rawURL string) error {
	return s.exchanger.ExchangeCode(ctx, rawURL)
}

// Session returns the current session or nil
func (s *Service) Session(ctx context.Context) (*models.Session, error) {
	return s.backend.GetSession(ctx)
}

// User fetches the signed-in user from the backend
func (s *Service) User(ctx context.Context) (*models.User, error) {
	return s.backend.GetUser(ctx)
}

// SignIn validates the form and signs in with email and password
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.TrimSpace(email)
	if err := credentials.ValidateSignIn(email, password); err != nil {
		return nil, err
	}
	return s.backend.SignInWithPassword(ctx, email, password)
}

// SignUp validates the form and creates the account. The verification link returns to the verified screen.
func (s *Service) SignUp(ctx context.Context, form credentials.SignUpForm) (*models.SignUpResult, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := credentials.ValidateSignUp(form); err != nil {
		return nil, err
	}

	redirectTo, _ := s.env.VerifiedURL()
	result, err := s.backend.SignUp(ctx, models.SignUpRequest{
		Email:      form.Email,
		Password:   form.Password,
		FullName:   strings.TrimSpace(form.FullName),
		Phone:      strings.TrimSpace(form.Phone),
		RedirectTo: redirectTo,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("account created",
		zap.Bool("confirmation_required", result.Session == nil),
	)
	return result, nil
}

// ResendVerification sends the sign-up verification email again
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !credentials.ValidEmail(email) {
		return credentials.ErrInvalidEmail
	}
	redirectTo, _ := s.env.VerifiedURL()
	return s.backend.ResendSignUpEmail(ctx, email, redirectTo)
}

// SignOut ends the session
func (s *Service) SignOut(ctx context.Context) error {
	return s.backend.SignOut(ctx)
}
