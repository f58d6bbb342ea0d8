package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/brizzai/clgmart/internal/auth/models"
	"go.uber.org/zap"
)

// GetSession returns the stored session, refreshing it first when it is about to expire.
// A stored session whose refresh is rejected is cleared and reported as signed out.
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	session, err := c.loadSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}

	if exp := session.Expiry(); !exp.IsZero() && exp.Sub(c.now()) < refreshMargin {
		if session.RefreshToken == "" {
			c.log.Info("stored session expired without refresh token")
			return nil, c.clearSession(ctx)
		}
		refreshed, err := c.refresh(ctx, session.RefreshToken)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
				c.log.Info("refresh token rejected, clearing session", zap.Error(err))
				if clearErr := c.clearSession(ctx); clearErr != nil {
					return nil, clearErr
				}
				c.notify(models.EventSignedOut, nil)
				return nil, nil
			}
			return nil, err
		}
		return refreshed, nil
	}

	if err := c.verify(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RefreshSession forces a refresh_token grant for the stored session
func (c *Client) RefreshSession(ctx context.Context) (*models.Session, error) {
	session, err := c.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.RefreshToken == "" {
		return nil, fmt.Errorf("no session to refresh")
	}
	return c.refresh(ctx, session.RefreshToken)
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	session, err := c.grant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	if err := c.saveSession(ctx, session); err != nil {
		return nil, err
	}
	c.log.Debug("session refreshed", zap.Time("expires_at", session.Expiry()))
	c.notify(models.EventTokenRefreshed, session)
	return session, nil
}

// SignOut revokes the session server side, then clears it locally even if revocation failed
func (c *Client) SignOut(ctx context.Context) error {
	session, err := c.loadSession(ctx)
	if err != nil {
		return err
	}
	if session != nil {
		if err := c.do(ctx, http.MethodPost, "/logout", nil, nil, nil, session.AccessToken); err != nil {
			c.log.Warn("logout request failed, clearing local session anyway", zap.Error(err))
		}
	}

	if err := c.clearSession(ctx); err != nil {
		return err
	}
	c.notify(models.EventSignedOut, nil)
	return nil
}

func (c *Client) loadSession(ctx context.Context) (*models.Session, error) {
	raw, ok, err := c.storage.GetItem(ctx, c.storageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var session models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		c.log.Warn("discarding unreadable stored session", zap.Error(err))
		return nil, c.clearSession(ctx)
	}
	if session.AccessToken == "" {
		return nil, nil
	}
	return &session, nil
}

func (c *Client) saveSession(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := c.storage.SetItem(ctx, c.storageKey, string(data)); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (c *Client) clearSession(ctx context.Context) error {
	if err := c.storage.RemoveItem(ctx, c.storageKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
