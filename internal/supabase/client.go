// Package supabase is a client for the hosted auth REST API (GoTrue) covering the calls the sign-in flow makes.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/brizzai/clgmart/internal/auth/constants"
	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/auth/providers"
	"github.com/brizzai/clgmart/internal/config"
	"github.com/brizzai/clgmart/internal/logger"
	"github.com/brizzai/clgmart/internal/store"
	"go.uber.org/zap"
)

const (
	authPath       = "/auth/v1"
	verifierSuffix = "-code-verifier"
	// sessions expiring within this window are refreshed before being returned
	refreshMargin  = 30 * time.Second
)

// ErrMissingCodeVerifier is returned when a code arrives on a device that did not start the sign-in
var ErrMissingCodeVerifier = errors.New("PKCE code verifier not found in storage, the sign-in must be started from this device")

// APIError is an error body returned by the auth API
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error_code,omitempty"`
	Message string `json:"msg,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auth request failed with status %d", e.Status)
}

// Client talks to the auth API and owns session storage
type Client struct {
	baseURL    string
	anonKey    string
	storageKey string
	httpClient *http.Client
	storage    store.Storage
	verifier   tokenVerifier
	log        *zap.Logger
	now        func() time.Time

	mu        sync.Mutex
	nextID    int
	listeners map[int]providers.AuthStateListener
}

var _ providers.AccountBackend = (*Client)(nil)

// NewClient builds a Client from the supabase section of the config
func NewClient(cfg *config.SupabaseConfig, storage store.Storage) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid supabase url %q", cfg.URL)
	}
	if cfg.AnonKey == "" {
		return nil, config.ErrMissingSupabaseAnonKey
	}

	storageKey := cfg.StorageKey
	if storageKey == "" {
		storageKey = defaultStorageKey(base)
	}

	c := &Client{
		baseURL:    base.String(),
		anonKey:    cfg.AnonKey,
		storageKey: storageKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		storage:    storage,
		log:        logger.Named("supabase"),
		now:        time.Now,
		listeners:  make(map[int]providers.AuthStateListener),
	}
	if cfg.VerifyJWT {
		c.verifier = newRemoteVerifier(c.authURL(""), c.httpClient, func() time.Time { return c.now() })
	}
	return c, nil
}

// defaultStorageKey follows the hosted client convention sb-<project ref>-auth-token
func defaultStorageKey(base *url.URL) string {
	ref := strings.Split(base.Hostname(), ".")[0]
	return "sb-" + ref + "-auth-token"
}

// StorageKey is the key the session is stored under
func (c *Client) StorageKey() string {
	return c.storageKey
}

func (c *Client) authURL(path string) string {
	return c.baseURL + authPath + path
}

// OnAuthStateChange registers fn for SIGNED_IN, SIGNED_OUT and TOKEN_REFRESHED events
func (c *Client) OnAuthStateChange(fn providers.AuthStateListener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
		})
	}
}

func (c *Client) notify(event models.AuthEvent, session *models.Session) {
	c.mu.Lock()
	fns := make([]providers.AuthStateListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	c.log.Debug("auth state changed", zap.String("event", string(event)), zap.Int("listeners", len(fns)))
	for _, fn := range fns {
		fn(event, session)
	}
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, accessToken string) error {
	target := c.authURL(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken == "" {
		accessToken = c.anonKey
	}
	req.Header.Set("Authorization", constants.TokenType+" "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth request %s failed: %w", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Error("Failed to close response body", zap.Error(err))
		}
	}()

	return c.decode(resp, out)
}

func (c *Client) decode(resp *http.Response, out interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return parseAPIError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseAPIError reads the several error shapes the auth API uses
func parseAPIError(status int, data []byte) error {
	var body struct {
		Code             string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(data, &body); err != nil {
		return apiErr
	}

	apiErr.Code = body.Code
	if apiErr.Code == "" {
		apiErr.Code = body.Error
	}
	for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	return apiErr
}
