// Package initiator starts a provider sign-in and, on native platforms, waits for it to finish.
package initiator

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/clgmart/internal/auth/callback"
	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/auth/providers"
	"github.com/brizzai/clgmart/internal/auth/redirect"
	"github.com/brizzai/clgmart/internal/logger"
	"go.uber.org/zap"
)

// ErrNoOAuthURL is returned when the backend accepts the request but hands back no URL
var ErrNoOAuthURL = errors.New("no OAuth URL returned")

// Browser is the system browser integration.
// Redirect navigates away from the app (web). OpenAuthSession blocks until the browser
// reaches returnURL or the user cancels (native).
type Browser interface {
	Redirect(ctx context.Context, url string) error
	OpenAuthSession(ctx context.Context, authURL, returnURL string) (models.BrowserResult, error)
}

// Initiator starts OAuth sign-in for the configured platform
type Initiator struct {
	env       redirect.Environment
	backend   providers.Backend
	exchanger *callback.Exchanger
	scopes    string
	log       *zap.Logger
}

// New creates an Initiator
func New(env redirect.Environment, backend providers.Backend, exchanger *callback.Exchanger) *Initiator {
	return &Initiator{
		env:       env,
		backend:   backend,
		exchanger: exchanger,
		log:       logger.Named("initiator"),
	}
}

// WithScopes sets extra provider scopes, space separated
func (i *Initiator) WithScopes(scopes string) *Initiator {
	i.scopes = scopes
	return i
}

// Start begins sign-in with provider.
//
// On web the browser is redirected and Start returns; the callback route finishes the flow.
// On native the in-app browser session is awaited and any returned code is exchanged.
// A failed exchange is logged, not returned: the session resolver re-checks the backend.
func (i *Initiator) Start(ctx context.Context, provider string, browser Browser) error {
	redirectTo, _ := i.env.CallbackURL()

	if i.env.IsWeb() {
		authURL, err := i.backend.SignInWithOAuth(ctx, provider, models.OAuthOptions{
			RedirectTo: redirectTo,
			Scopes:     i.scopes,
		})
		if err != nil {
			return err
		}
		if authURL == "" {
			return ErrNoOAuthURL
		}
		i.log.Info("redirecting to provider", zap.String("provider", provider), zap.String("redirect_to", redirectTo))
		if err := browser.Redirect(ctx, authURL); err != nil {
			return fmt.Errorf("failed to open provider page: %w", err)
		}
		return nil
	}

	authURL, err := i.backend.SignInWithOAuth(ctx, provider, models.OAuthOptions{
		RedirectTo:          redirectTo,
		Scopes:              i.scopes,
		SkipBrowserRedirect: true,
	})
	if err != nil {
		return err
	}
	if authURL == "" {
		return ErrNoOAuthURL
	}

	i.log.Info("opening auth session", zap.String("provider", provider), zap.String("redirect_to", redirectTo))
	result, err := browser.OpenAuthSession(ctx, authURL, redirectTo)
	if err != nil {
		return fmt.Errorf("failed to open auth session: %w", err)
	}

	if result.Type != models.BrowserSuccess || result.URL == "" {
		i.log.Info("auth session ended without redirect", zap.String("result", string(result.Type)))
		return nil
	}

	if err := i.exchanger.ExchangeCode(ctx, result.URL); err != nil {
		i.log.Warn("code exchange after auth session failed, deferring to session check", zap.Error(err))
	}
	return nil
}
