// Package browser drives the system browser for provider sign-in from a terminal.
package browser

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/brizzai/clgmart/internal/auth/constants"
	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/logger"
	sysbrowser "github.com/pkg/browser"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
)

// Opener shows link to the user, normally by launching the default browser
type Opener func(link string) error

// Prompter asks the user for one line of input
type Prompter func(ctx context.Context, message string) (string, error)

// Session opens provider pages and waits for the redirect back to the app.
//
// A loopback returnURL (http://127.0.0.1:port/path) is served locally and the first request
// to path ends the session. Any other returnURL, such as a custom-scheme deep link, is read
// back from the user, who pastes the address the browser landed on.
type Session struct {
	open   Opener
	prompt Prompter
	log    *zap.Logger
}

// New returns a Session that launches the system browser and prompts on the terminal
func New() *Session {
	return &Session{
		open:   sysbrowser.OpenURL,
		prompt: terminalPrompt,
		log:    logger.Named("browser"),
	}
}

// WithOpener replaces how URLs are opened
func (s *Session) WithOpener(open Opener) *Session {
	s.open = open
	return s
}

// WithPrompter replaces how the pasted redirect is read
func (s *Session) WithPrompter(prompt Prompter) *Session {
	s.prompt = prompt
	return s
}

// Redirect opens link and returns without waiting
func (s *Session) Redirect(_ context.Context, link string) error {
	s.show(link)
	return nil
}

// OpenAuthSession opens authURL and blocks until the browser returns to returnURL.
// Context cancellation yields a cancel result, an empty paste yields dismiss.
func (s *Session) OpenAuthSession(ctx context.Context, authURL, returnURL string) (models.BrowserResult, error) {
	target, err := url.Parse(returnURL)
	if err != nil {
		return models.BrowserResult{}, fmt.Errorf("invalid return url %q: %w", returnURL, err)
	}
	if isLoopback(target) {
		return s.awaitLoopback(ctx, authURL, target)
	}
	return s.awaitPaste(ctx, authURL, returnURL)
}

func (s *Session) show(authURL string) {
	if err := s.open(authURL); err != nil {
		s.log.Debug("could not launch browser", zap.Error(err))
		if clipErr := clipboard.WriteAll(authURL); clipErr == nil {
			pterm.Info.Println("Copied the sign-in link to your clipboard")
		}
		pterm.Info.Printfln("Open this link in your browser to continue:\n%s", authURL)
		return
	}
	pterm.Info.Println("Opened your browser to continue signing in")
}

func (s *Session) awaitLoopback(ctx context.Context, authURL string, target *url.URL) (models.BrowserResult, error) {
	ln, err := net.Listen("tcp", target.Host)
	if err != nil {
		return models.BrowserResult{}, fmt.Errorf("failed to listen for callback on %s: %w", target.Host, err)
	}

	path := target.Path
	if path == "" {
		path = "/"
	}

	received := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(path, s.callbackHandler(target.Host, received))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("callback listener failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("callback listener shutdown", zap.Error(err))
		}
	}()

	s.log.Debug("waiting for callback", zap.String("addr", ln.Addr().String()), zap.String("path", path))
	s.show(authURL)

	select {
	case <-ctx.Done():
		return models.BrowserResult{Type: models.BrowserCancel}, nil
	case u := <-received:
		return models.BrowserResult{Type: models.BrowserSuccess, URL: u}, nil
	}
}

func (s *Session) awaitPaste(ctx context.Context, authURL, returnURL string) (models.BrowserResult, error) {
	s.show(authURL)

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := s.prompt(ctx, "Paste the address the browser opened after sign-in")
		answers <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return models.BrowserResult{Type: models.BrowserCancel}, nil
	case a := <-answers:
		if a.err != nil {
			return models.BrowserResult{}, a.err
		}
		line := strings.TrimSpace(a.line)
		if line == "" {
			return models.BrowserResult{Type: models.BrowserDismiss}, nil
		}
		if !strings.HasPrefix(line, returnURL) {
			return models.BrowserResult{}, fmt.Errorf("pasted address does not start with %s", returnURL)
		}
		return models.BrowserResult{Type: models.BrowserSuccess, URL: line}, nil
	}
}

func isLoopback(u *url.URL) bool {
	if u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func terminalPrompt(_ context.Context, message string) (string, error) {
	return pterm.DefaultInteractiveTextInput.Show(message)
}

// callbackHandler answers the browser and hands the first redirect it receives to received
func (s *Session) callbackHandler(host string, received chan<- string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := callbackPage{
			Title:   "Signed in",
			Message: "You can close this window and return to the terminal.",
		}
		if q.Get(constants.CodeQueryParam) == "" {
			page.Title = "Sign-in was not completed"
			page.Message = q.Get(constants.ErrorDescriptionQueryParam)
			if page.Message == "" {
				page.Message = "Return to the terminal to try again."
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := callbackTemplate.Execute(w, page); err != nil {
			s.log.Warn("failed to render callback page", zap.Error(err))
		}
		select {
		case received <- "http://" + host + r.URL.RequestURI():
		default:
		}
	}
}

type callbackPage struct {
	Title   string
	Message string
}

var callbackTemplate = template.Must(template.New("callback").Parse(`<!doctype html>
<html><head><title>ClgMart</title></head>
<body style="font-family:sans-serif;text-align:center;padding-top:4em">
<h2>{{.Title}}</h2><p>{{.Message}}</p>
</body></html>`))
