package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/brizzai/clgmart/internal/auth/models"
	sysbrowser "github.com/pkg/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func pasted(line string, err error) Prompter {
	return func(context.Context, string) (string, error) {
		return line, err
	}
}

func TestRedirect(t *testing.T) {
	var opened []string
	s := New().WithOpener(func(link string) error {
		opened = append(opened, link)
		return nil
	})

	require.NoError(t, s.Redirect(context.Background(), "https://example.supabase.co/auth/v1/authorize?provider=google"))
	assert.Equal(t, []string{"https://example.supabase.co/auth/v1/authorize?provider=google"}, opened)
}

func TestRedirect_OpenerFailureStillSucceeds(t *testing.T) {
	s := New().WithOpener(func(string) error { return errors.New("no display") })
	assert.NoError(t, s.Redirect(context.Background(), "https://example.com"))
}

func TestOpenAuthSession_Loopback(t *testing.T) {
	returnURL := fmt.Sprintf("http://127.0.0.1:%d/auth/callback", freePort(t))

	s := New().WithOpener(func(string) error {
		// plays the provider sending the browser back
		go func() {
			resp, err := http.Get(returnURL + "?code=abc123")
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := s.OpenAuthSession(ctx, "https://example.com/authorize", returnURL)
	require.NoError(t, err)
	assert.Equal(t, models.BrowserSuccess, result.Type)
	assert.Equal(t, returnURL+"?code=abc123", result.URL)
}

func TestCallbackHandler_Page(t *testing.T) {
	tests := []struct {
		name        string
		requestURI  string
		wantTitle   string
		wantMessage string
	}{
		{"code", "/auth/callback?code=abc123", "Signed in", "You can close this window"},
		{"denied", "/auth/callback?error=access_denied&error_description=User+denied+access", "Sign-in was not completed", "User denied access"},
		{"no parameters", "/auth/callback", "Sign-in was not completed", "Return to the terminal to try again."},
		{"description is escaped", "/auth/callback?error=x&error_description=%3Cb%3Ehi%3C%2Fb%3E", "Sign-in was not completed", "&lt;b&gt;hi&lt;/b&gt;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received := make(chan string, 1)
			rec := httptest.NewRecorder()
			New().callbackHandler("127.0.0.1:9999", received).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.requestURI, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "<h2>"+tt.wantTitle+"</h2>")
			assert.Contains(t, rec.Body.String(), tt.wantMessage)
			assert.Equal(t, "http://127.0.0.1:9999"+tt.requestURI, <-received)
		})
	}
}

func TestOpenAuthSession_LoopbackCancelled(t *testing.T) {
	returnURL := fmt.Sprintf("http://127.0.0.1:%d/auth/callback", freePort(t))
	s := New().WithOpener(func(string) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.OpenAuthSession(ctx, "https://example.com/authorize", returnURL)
	require.NoError(t, err)
	assert.Equal(t, models.BrowserCancel, result.Type)
}

func TestOpenAuthSession_Paste(t *testing.T) {
	const returnURL = "clgmart://auth/callback"

	tests := []struct {
		name     string
		prompt   Prompter
		wantType models.BrowserResultType
		wantURL  string
		wantErr  bool
	}{
		{
			name:     "pasted redirect",
			prompt:   pasted("  clgmart://auth/callback?code=abc123\n", nil),
			wantType: models.BrowserSuccess,
			wantURL:  "clgmart://auth/callback?code=abc123",
		},
		{
			name:     "empty input dismisses",
			prompt:   pasted("   ", nil),
			wantType: models.BrowserDismiss,
		},
		{
			name:    "foreign address",
			prompt:  pasted("https://evil.example/auth/callback?code=abc", nil),
			wantErr: true,
		},
		{
			name:    "prompt failure",
			prompt:  pasted("", errors.New("stdin closed")),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New().
				WithOpener(func(string) error { return nil }).
				WithPrompter(tt.prompt)

			result, err := s.OpenAuthSession(context.Background(), "https://example.com/authorize", returnURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, result.Type)
			assert.Equal(t, tt.wantURL, result.URL)
		})
	}
}

func TestOpenAuthSession_PasteCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	s := New().
		WithOpener(func(string) error { return nil }).
		WithPrompter(func(context.Context, string) (string, error) {
			<-block
			return "", nil
		})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := s.OpenAuthSession(ctx, "https://example.com/authorize", "clgmart://auth/callback")
	require.NoError(t, err)
	assert.Equal(t, models.BrowserCancel, result.Type)
}

func TestOpenAuthSession_InvalidReturnURL(t *testing.T) {
	_, err := New().OpenAuthSession(context.Background(), "https://example.com/authorize", "%zz")
	assert.Error(t, err)
}

func TestIsLoopback(t *testing.T) {
	for raw, want := range map[string]bool{
		"http://127.0.0.1:8080/cb": true,
		"http://localhost:8080/cb": true,
		"http://[::1]:8080/cb":     true,
		"https://127.0.0.1/cb":     false,
		"http://example.com/cb":    false,
		"clgmart://auth/callback":  false,
	} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, isLoopback(u), raw)
	}
}

func TestNew_LaunchesSystemBrowser(t *testing.T) {
	assert.Equal(t, reflect.ValueOf(sysbrowser.OpenURL).Pointer(), reflect.ValueOf(New().open).Pointer())
}
