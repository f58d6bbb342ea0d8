package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/config"
	"github.com/brizzai/clgmart/internal/store"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testAnonKey = "anon-key"

// fakeAuthAPI is an in-memory stand-in for the auth REST API
type fakeAuthAPI struct {
	t *testing.T

	mu            sync.Mutex
	codes         map[string]string // auth code -> expected code challenge
	refreshTokens map[string]bool
	requests      []*http.Request
	bodies        []map[string]interface{}
	signUpStatus  int
	signUpBody    string
	logoutStatus  int
	expiresIn     int64
}

func newFakeAuthAPI(t *testing.T) (*fakeAuthAPI, *httptest.Server) {
	f := &fakeAuthAPI{
		t:             t,
		codes:         make(map[string]string),
		refreshTokens: make(map[string]bool),
		expiresIn:     3600,
		logoutStatus:  http.StatusNoContent,
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAuthAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	if r.Header.Get("apikey") != testAnonKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "No API key found in request"})
		return
	}

	switch r.URL.Path {
	case "/auth/v1/token":
		f.token(w, r.URL.Query().Get("grant_type"), body)
	case "/auth/v1/signup":
		f.signUp(w)
	case "/auth/v1/resend":
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	case "/auth/v1/user":
		if r.Header.Get("Authorization") != "Bearer access-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "invalid JWT"})
			return
		}
		writeJSON(w, http.StatusOK, testUser())
	case "/auth/v1/logout":
		w.WriteHeader(f.logoutStatus)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAuthAPI) token(w http.ResponseWriter, grant string, body map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch grant {
	case "pkce":
		code, _ := body["auth_code"].(string)
		verifier, _ := body["code_verifier"].(string)
		challenge, ok := f.codes[code]
		if !ok || oauth2.S256ChallengeFromVerifier(verifier) != challenge {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error_code": "bad_code_verifier",
				"msg":        "invalid flow state, no valid flow state found",
			})
			return
		}
		delete(f.codes, code)
		f.refreshTokens["refresh-1"] = true
		writeJSON(w, http.StatusOK, f.session("access-1", "refresh-1"))
	case "password":
		if body["password"] != "secret1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
			return
		}
		f.refreshTokens["refresh-1"] = true
		writeJSON(w, http.StatusOK, f.session("access-1", "refresh-1"))
	case "refresh_token":
		token, _ := body["refresh_token"].(string)
		if !f.refreshTokens[token] {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error_code": "refresh_token_not_found",
				"msg":        "Invalid Refresh Token: Refresh Token Not Found",
			})
			return
		}
		delete(f.refreshTokens, token)
		f.refreshTokens["refresh-2"] = true
		writeJSON(w, http.StatusOK, f.session("access-2", "refresh-2"))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "unsupported grant"})
	}
}

func (f *fakeAuthAPI) signUp(w http.ResponseWriter) {
	f.mu.Lock()
	status, body := f.signUpStatus, f.signUpBody
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeAuthAPI) session(access, refresh string) map[string]interface{} {
	return map[string]interface{}{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    f.expiresIn,
		"refresh_token": refresh,
		"user":          testUser(),
	}
}

func (f *fakeAuthAPI) lastRequest() (*http.Request, map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.requests)
	return f.requests[n-1], f.bodies[n-1]
}

func (f *fakeAuthAPI) requestCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.URL.Path == path {
			n++
		}
	}
	return n
}

func testUser() map[string]interface{} {
	return map[string]interface{}{
		"id":    "user-1",
		"email": "ada@example.com",
		"user_metadata": map[string]interface{}{
			"full_name": "Ada Lovelace",
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type recordedEvent struct {
	event   models.AuthEvent
	session *models.Session
}

func newTestClient(t *testing.T, srv *httptest.Server) (*Client, *store.Memory, *[]recordedEvent) {
	t.Helper()
	storage := store.NewMemory()
	c, err := NewClient(&config.SupabaseConfig{
		URL:        srv.URL,
		AnonKey:    testAnonKey,
		StorageKey: "sb-test-auth-token",
		Timeout:    5 * time.Second,
	}, storage)
	require.NoError(t, err)

	var mu sync.Mutex
	events := &[]recordedEvent{}
	c.OnAuthStateChange(func(event models.AuthEvent, session *models.Session) {
		mu.Lock()
		defer mu.Unlock()
		*events = append(*events, recordedEvent{event, session})
	})
	return c, storage, events
}

// startSignIn builds an authorize URL and registers code with the challenge it carries
func startSignIn(t *testing.T, f *fakeAuthAPI, c *Client, code string) *url.URL {
	t.Helper()
	raw, err := c.SignInWithOAuth(context.Background(), "google", models.OAuthOptions{
		RedirectTo:          "clgmart://auth/callback",
		SkipBrowserRedirect: true,
	})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	f.mu.Lock()
	f.codes[code] = u.Query().Get("code_challenge")
	f.mu.Unlock()
	return u
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SupabaseConfig
		wantKey string
		wantErr bool
	}{
		{
			name:    "derives storage key from project ref",
			cfg:     config.SupabaseConfig{URL: "https://abcd1234.supabase.co/", AnonKey: "k"},
			wantKey: "sb-abcd1234-auth-token",
		},
		{
			name:    "explicit storage key",
			cfg:     config.SupabaseConfig{URL: "https://abcd1234.supabase.co", AnonKey: "k", StorageKey: "custom"},
			wantKey: "custom",
		},
		{
			name:    "relative url",
			cfg:     config.SupabaseConfig{URL: "abcd1234.supabase.co", AnonKey: "k"},
			wantErr: true,
		},
		{
			name:    "missing anon key",
			cfg:     config.SupabaseConfig{URL: "https://abcd1234.supabase.co"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(&tt.cfg, store.NewMemory())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, c.StorageKey())
		})
	}
}

func TestSignInWithOAuth(t *testing.T) {
	_, srv := newFakeAuthAPI(t)
	c, storage, _ := newTestClient(t, srv)

	raw, err := c.SignInWithOAuth(context.Background(), "google", models.OAuthOptions{
		RedirectTo: "http://localhost:8081/auth/callback",
		Scopes:     "email profile",
	})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "google", q.Get("provider"))
	assert.Equal(t, "http://localhost:8081/auth/callback", q.Get("redirect_to"))
	assert.Equal(t, "email profile", q.Get("scopes"))
	assert.Equal(t, "s256", q.Get("code_challenge_method"))

	verifier, ok, err := storage.GetItem(context.Background(), "sb-test-auth-token-code-verifier")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))

	_, err = c.SignInWithOAuth(context.Background(), "", models.OAuthOptions{})
	assert.Error(t, err)
}

func TestExchangeCodeForSession(t *testing.T) {
	f, srv := newFakeAuthAPI(t)
	c, storage, events := newTestClient(t, srv)
	ctx := context.Background()

	startSignIn(t, f, c, "code-1")

	session, err := c.ExchangeCodeForSession(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", session.AccessToken)
	assert.True(t, session.Authenticated())
	assert.NotZero(t, session.ExpiresAt)

	_, ok, err := storage.GetItem(ctx, "sb-test-auth-token-code-verifier")
	require.NoError(t, err)
	assert.False(t, ok, "verifier is single use")

	stored, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", stored.AccessToken)

	require.Len(t, *events, 1)
	assert.Equal(t, models.EventSignedIn, (*events)[0].event)
	assert.Equal(t, "user-1", (*events)[0].session.User.ID)
}

func TestExchangeCodeForSession_MissingVerifier(t *testing.T) {
	f, srv := newFakeAuthAPI(t)
	c, _, events := newTestClient(t, srv)

	_, err := c.ExchangeCodeForSession(context.Background(), "code-1")
	assert.ErrorIs(t, err, ErrMissingCodeVerifier)
	assert.Zero(t, f.requestCount("/auth/v1/token"))
	assert.Empty(t, *events)
}

func TestExchangeCodeForSession_Rejected(t *testing.T) {
	f, srv := newFakeAuthAPI(t)
	c, storage, events := newTestClient(t, srv)
	ctx := context.Background()

	startSignIn(t, f, c, "code-1")

	_, err := c.ExchangeCodeForSession(ctx, "other-code")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "bad_code_verifier", apiErr.Code)
	assert.Equal(t, "invalid flow state, no valid flow state found", err.Error())

	_, ok, _ := storage.GetItem(ctx, "sb-test-auth-token-code-verifier")
	assert.False(t, ok, "verifier removed after a failed attempt")

	session, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Empty(t, *events)
}

func TestGetSession_RefreshesNearExpiry(t *testing.T) {
	f, srv := newFakeAuthAPI(t)
	c, _, events := newTestClient(t, srv)
	ctx := context.Background()

	f.expiresIn = 10
	_, err := c.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	f.expiresIn = 3600
	session, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", session.AccessToken)
	assert.Equal(t, "refresh-2", session.RefreshToken)

	require.Len(t, *events, 2)
	assert.Equal(t, models.EventSignedIn, (*events)[0].event)
	assert.Equal(t, models.EventTokenRefreshed, (*events)[1].event)

	_, body := f.lastRequest()
	assert.Equal(t, "refresh-1", body["refresh_token"])

	// fresh session is returned from storage without another refresh
	again, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", again.AccessToken)
	assert.Equal(t, 2, f.requestCount("/auth/v1/token"))
}

func TestGetSession_RejectedRefreshSignsOut(t *testing.T) {
	_, srv := newFakeAuthAPI(t)
	c, storage, events := newTestClient(t, srv)
	ctx := context.Background()

	expired := models.Session{
		AccessToken:  "stale",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(-time.Hour).Unix(),
		RefreshToken: "revoked",
		User:         &models.User{ID: "user-1"},
	}
	data, err := json.Marshal(expired)
	require.NoError(t, err)
	require.NoError(t, storage.SetItem(ctx, "sb-test-auth-token", string(data)))

	session, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)

	_, ok, _ := storage.GetItem(ctx, "sb-test-auth-token")
	assert.False(t, ok)
	require.Len(t, *events, 1)
	assert.Equal(t, models.EventSignedOut, (*events)[0].event)
}

func TestGetSession_UnreadableSession(t *testing.T) {
	_, srv := newFakeAuthAPI(t)
	c, storage, _ := newTestClient(t, srv)
	ctx := context.Background()

	require.NoError(t, storage.SetItem(ctx, "sb-test-auth-token", "{not json"))

	session, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)

	_, ok, _ := storage.GetItem(ctx, "sb-test-auth-token")
	assert.False(t, ok)
}

func TestSignInWithPassword_InvalidCredentials(t *testing.T) {
	_, srv := newFakeAuthAPI(t)
	c, _, events := newTestClient(t, srv)

	_, err := c.SignInWithPassword(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())
	assert.Empty(t, *events)
}

func TestSignUp(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     error
		wantSession bool
	}{
		{
			name: "confirmation required",
			body: `{"id":"user-2","email":"grace@example.com","identities":[{"id":"i-1"}]}`,
		},
		{
			name:        "session issued",
			body:        `{"access_token":"access-9","token_type":"bearer","expires_in":3600,"refresh_token":"r","user":{"id":"user-2"}}`,
			wantSession: true,
		},
		{
			name:    "obfuscated existing user",
			body:    `{"id":"user-x","email":"grace@example.com","identities":[]}`,
			wantErr: models.ErrEmailAlreadyRegistered,
		},
		{
			name:    "existing user error",
			status:  http.StatusUnprocessableEntity,
			body:    `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`,
			wantErr: models.ErrEmailAlreadyRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, srv := newFakeAuthAPI(t)
			f.signUpStatus, f.signUpBody = tt.status, tt.body
			c, _, events := newTestClient(t, srv)

			result, err := c.SignUp(context.Background(), models.SignUpRequest{
				Email:      "grace@example.com",
				Password:   "secret1",
				FullName:   "Grace Hopper",
				Phone:      "+1 555 0100",
				RedirectTo: "clgmart://auth/verified",
			})

			req, body := f.lastRequest()
			assert.Equal(t, "clgmart://auth/verified", req.URL.Query().Get("redirect_to"))
			assert.Equal(t, map[string]interface{}{"full_name": "Grace Hopper", "phone": "+1 555 0100"}, body["data"])

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-2", result.User.ID)
			assert.Equal(t, tt.wantSession, result.Session != nil)
			assert.Equal(t, tt.wantSession, len(*events) == 1)
		})
	}
}

func TestResendSignUpEmail(t *testing.T) {
	f, srv := newFakeAuthAPI(t)
	c, _, _ := newTestClient(t, srv)

	require.NoError(t, c.ResendSignUpEmail(context.Background(), "grace@example.com", "clgmart://auth/verified"))

	req, body := f.lastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/auth/v1/resend", req.URL.Path)
	assert.Equal(t, "clgmart://auth/verified", req.URL.Query().Get("redirect_to"))
	assert.Equal(t, "signup", body["type"])
	assert.Equal(t, "grace@example.com", body["email"])
}

func TestGetUser(t *testing.T) {
	_, srv := newFakeAuthAPI(t)
	c, _, _ := newTestClient(t, srv)
	ctx := context.Background()

	_, err := c.GetUser(ctx)
	assert.Error(t, err, "signed out")

	_, err = c.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	user, err := c.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "Ada Lovelace", user.UserMetadata["full_name"])
}

func TestSignOut(t *testing.T) {
	f, srv := newFakeAuthAPI(t)
	f.logoutStatus = http.StatusInternalServerError
	c, storage, events := newTestClient(t, srv)
	ctx := context.Background()

	_, err := c.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, c.SignOut(ctx), "local sign-out survives a failed revoke")

	req, _ := f.lastRequest()
	assert.Equal(t, "/auth/v1/logout", req.URL.Path)
	assert.Equal(t, "Bearer access-1", req.Header.Get("Authorization"))

	_, ok, _ := storage.GetItem(ctx, "sb-test-auth-token")
	assert.False(t, ok)
	require.Len(t, *events, 2)
	assert.Equal(t, models.EventSignedOut, (*events)[1].event)
	assert.Nil(t, (*events)[1].session)
}

func TestOnAuthStateChange_Unsubscribe(t *testing.T) {
	_, srv := newFakeAuthAPI(t)
	c, _, _ := newTestClient(t, srv)

	calls := 0
	unsubscribe := c.OnAuthStateChange(func(models.AuthEvent, *models.Session) { calls++ })
	c.notify(models.EventSignedIn, nil)
	unsubscribe()
	unsubscribe()
	c.notify(models.EventSignedOut, nil)

	assert.Equal(t, 1, calls)
}

type stubVerifier struct {
	subject string
	err     error
}

func (s stubVerifier) Verify(context.Context, string) (*oidc.IDToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &oidc.IDToken{Subject: s.subject}, nil
}

func TestVerify(t *testing.T) {
	session := &models.Session{AccessToken: "a", User: &models.User{ID: "user-1"}}
	c := &Client{}
	assert.NoError(t, c.verify(context.Background(), session), "verification disabled")

	c.verifier = stubVerifier{subject: "user-1"}
	assert.NoError(t, c.verify(context.Background(), session))

	c.verifier = stubVerifier{subject: "someone-else"}
	assert.Error(t, c.verify(context.Background(), session))

	c.verifier = stubVerifier{err: errors.New("oidc: token is expired")}
	assert.Error(t, c.verify(context.Background(), session))
}

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{"msg", `{"error_code":"otp_expired","msg":"Email link is invalid or has expired"}`, "otp_expired", "Email link is invalid or has expired"},
		{"oauth style", `{"error":"invalid_grant","error_description":"Invalid login credentials"}`, "invalid_grant", "Invalid login credentials"},
		{"message", `{"message":"No API key found in request"}`, "", "No API key found in request"},
		{"not json", `<html>bad gateway</html>`, "", "auth request failed with status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseAPIError(http.StatusBadGateway, []byte(tt.body))
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}
