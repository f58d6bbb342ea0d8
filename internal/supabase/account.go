package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brizzai/clgmart/internal/auth/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// SignInWithPassword runs the password grant and stores the resulting session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := c.grant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if err := c.saveSession(ctx, session); err != nil {
		return nil, err
	}
	c.notify(models.EventSignedIn, session)
	return session, nil
}

// SignUp registers a user with full_name and phone metadata.
// With email confirmation enabled the result carries a user but no session.
func (c *Client) SignUp(ctx context.Context, req models.SignUpRequest) (*models.SignUpResult, error) {
	body := map[string]interface{}{
		"email":    req.Email,
		"password": req.Password,
		"data": map[string]string{
			"full_name": req.FullName,
			"phone":     req.Phone,
		},
	}

	var query url.Values
	if req.RedirectTo != "" {
		query = url.Values{"redirect_to": {req.RedirectTo}}
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/signup", query, body, &raw, ""); err != nil {
		if alreadyRegistered(err) {
			return nil, models.ErrEmailAlreadyRegistered
		}
		return nil, err
	}

	result, err := c.parseSignUp(raw)
	if err != nil {
		return nil, err
	}

	if result.Session != nil {
		if err := c.saveSession(ctx, result.Session); err != nil {
			return nil, err
		}
		c.notify(models.EventSignedIn, result.Session)
	}
	c.log.Info("user signed up", zap.String("user_id", result.User.ID), zap.Bool("confirmation_required", result.Session == nil))
	return result, nil
}

func (c *Client) parseSignUp(raw json.RawMessage) (*models.SignUpResult, error) {
	var probe struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode sign-up response: %w", err)
	}

	if probe.AccessToken != "" {
		var session models.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return nil, fmt.Errorf("failed to decode sign-up session: %w", err)
		}
		if session.User == nil {
			return nil, errors.New("sign-up response carried no user")
		}
		if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
			session.ExpiresAt = c.now().Unix() + session.ExpiresIn
		}
		return &models.SignUpResult{User: session.User, Session: &session}, nil
	}

	var user struct {
		models.User
		Identities []json.RawMessage `json:"identities"`
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode sign-up user: %w", err)
	}
	// an existing confirmed address comes back as an obfuscated user with no identities
	if user.Identities != nil && len(user.Identities) == 0 {
		return nil, models.ErrEmailAlreadyRegistered
	}
	if user.ID == "" {
		return nil, errors.New("sign-up response carried no user")
	}
	return &models.SignUpResult{User: &user.User}, nil
}

func alreadyRegistered(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == "user_already_exists" || apiErr.Code == "email_exists" ||
		strings.Contains(strings.ToLower(apiErr.Message), "already registered")
}

// ResendSignUpEmail sends the signup confirmation email again
func (c *Client) ResendSignUpEmail(ctx context.Context, email, redirectTo string) error {
	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": {redirectTo}}
	}
	body := map[string]string{
		"type":  "signup",
		"email": email,
	}
	return c.do(ctx, http.MethodPost, "/resend", query, body, nil, "")
}

// GetUser fetches the current user from the API, authenticating with the stored session
func (c *Client) GetUser(ctx context.Context) (*models.User, error) {
	session, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.New("not signed in")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(session.Token()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authURL("/user"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call user endpoint: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Error("Failed to close response body", zap.Error(err))
		}
	}()

	var user models.User
	if err := c.decode(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
