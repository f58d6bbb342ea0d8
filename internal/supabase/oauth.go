package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/brizzai/clgmart/internal/auth/constants"
	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// SignInWithOAuth stores a fresh PKCE verifier and returns the provider authorize URL.
// The URL is returned in every case; opts.SkipBrowserRedirect only tells the caller it must open it.
func (c *Client) SignInWithOAuth(ctx context.Context, provider string, opts models.OAuthOptions) (string, error) {
	if provider == "" {
		return "", errors.New("provider is required")
	}

	verifier := oauth2.GenerateVerifier()
	if err := c.storage.SetItem(ctx, c.verifierKey(), verifier); err != nil {
		return "", fmt.Errorf("failed to store code verifier: %w", err)
	}

	query := url.Values{}
	query.Set("provider", provider)
	if opts.RedirectTo != "" {
		query.Set("redirect_to", opts.RedirectTo)
	}
	if opts.Scopes != "" {
		query.Set("scopes", opts.Scopes)
	}
	query.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	query.Set("code_challenge_method", constants.CodeChallengeMethod)

	authURL := c.authURL("/authorize") + "?" + query.Encode()
	c.log.Debug("built authorize url",
		zap.String("provider", provider),
		zap.String("redirect_to", opts.RedirectTo),
		zap.Bool("skip_browser_redirect", opts.SkipBrowserRedirect))
	return authURL, nil
}

// ExchangeCodeForSession trades an authorization code plus the stored verifier for a session.
// The verifier is single use and is removed whether or not the exchange succeeds.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code string) (*models.Session, error) {
	verifier, ok, err := c.storage.GetItem(ctx, c.verifierKey())
	if err != nil {
		return nil, fmt.Errorf("failed to read code verifier: %w", err)
	}
	if !ok || verifier == "" {
		return nil, ErrMissingCodeVerifier
	}
	defer func() {
		if err := c.storage.RemoveItem(ctx, c.verifierKey()); err != nil {
			c.log.Warn("failed to remove code verifier", zap.Error(err))
		}
	}()

	body := map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	}
	session, err := c.grant(ctx, "pkce", body)
	if err != nil {
		c.log.Warn("pkce exchange rejected", logger.Secret("code", code), zap.Error(err))
		return nil, err
	}

	if err := c.saveSession(ctx, session); err != nil {
		return nil, err
	}
	c.notify(models.EventSignedIn, session)
	return session, nil
}

// grant posts to the token endpoint and returns a verified session
func (c *Client) grant(ctx context.Context, grantType string, body interface{}) (*models.Session, error) {
	var session models.Session
	query := url.Values{"grant_type": {grantType}}
	if err := c.do(ctx, http.MethodPost, "/token", query, body, &session, ""); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("token response for grant %s carried no access token", grantType)
	}
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = c.now().Unix() + session.ExpiresIn
	}
	if err := c.verify(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) verifierKey() string {
	return c.storageKey + verifierSuffix
}
