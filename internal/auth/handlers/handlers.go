package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/brizzai/clgmart/internal/auth"
	"github.com/brizzai/clgmart/internal/auth/constants"
	"github.com/brizzai/clgmart/internal/auth/credentials"
	"github.com/brizzai/clgmart/internal/auth/middleware"
	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/logger"
	"github.com/brizzai/clgmart/internal/utils"
	"go.uber.org/zap"
)

// Query parameters a redirect uses to carry an alert to the next screen
const (
	AlertTitleParam   = "alert"
	AlertMessageParam = "message"
)

// Handler serves the web sign-in screens
type Handler struct {
	auth *auth.Service
	log  *zap.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(svc *auth.Service) *Handler {
	return &Handler{
		auth: svc,
		log:  logger.Named("handlers"),
	}
}

// Screen is the JSON body of a screen route
type Screen struct {
	Screen  string       `json:"screen"`
	Alert   *Alert       `json:"alert,omitempty"`
	User    *models.User `json:"user,omitempty"`
	Actions []string     `json:"actions,omitempty"`
}

// Alert is a user-visible message
type Alert = utils.Alert

// SessionStatus is returned by GET /auth/session. Tokens are never exposed.
type SessionStatus struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	ExpiresAt     int64        `json:"expires_at,omitempty"`
}

// RegisterRoutes adds the auth and screen routes to mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux, requireSession func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /auth/oauth/{provider}", h.HandleOAuthStart)
	mux.HandleFunc("GET /auth/callback", h.HandleCallback)
	mux.HandleFunc("GET /auth/session", h.HandleSession)
	mux.HandleFunc("GET /auth/sign-in", h.HandleSignInScreen)
	mux.HandleFunc("POST /auth/sign-in", h.HandleSignIn)
	mux.HandleFunc("POST /auth/sign-up", h.HandleSignUp)
	mux.HandleFunc("POST /auth/resend", h.HandleResend)
	mux.HandleFunc("POST /auth/sign-out", h.HandleSignOut)
	mux.HandleFunc("GET /auth/verified", h.HandleVerified)
	mux.Handle("GET /home", requireSession(http.HandlerFunc(h.HandleHome)))
}

// HandleIndex routes to home or sign-in from the stored session
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, "")
}

// HandleCallback finishes a provider sign-in from the redirect URL
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.requestURL(r))
}

// resolve mounts a session resolver for this request; its navigation becomes the response redirect
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, initialURL string) {
	page := &page{}
	res := h.auth.NewResolver(page, page)
	outcome := res.Mount(r.Context(), initialURL)
	res.Unmount()

	dest := page.destination()
	if dest == "" {
		dest = outcome.Destination()
	}
	h.navigate(w, r, dest, page.alert())
}

// HandleOAuthStart redirects the browser to the provider
func (h *Handler) HandleOAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	browser := &redirectBrowser{w: w, r: r}

	if err := h.auth.StartProviderOAuth(r.Context(), provider, browser); err != nil {
		h.log.Warn("oauth start failed", zap.String("provider", provider), zap.Error(err))
		h.navigate(w, r, models.DestinationSignIn, &Alert{
			Title:   constants.AlertOAuthError,
			Message: models.Message(err, constants.FallbackStartMessage),
		})
		return
	}
	if !browser.redirected {
		h.navigate(w, r, models.DestinationSignIn, nil)
	}
}

// HandleSession reports the current session
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.Session(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusBadGateway, "session_error", Alert{Title: constants.AlertAuthError, Message: models.Message(err, constants.FallbackResolveMessage)})
		return
	}
	status := SessionStatus{Authenticated: session.Authenticated()}
	if session != nil {
		status.User = session.User
		status.ExpiresAt = session.ExpiresAt
	}
	utils.WriteJSON(w, status)
}

// HandleSignInScreen shows the sign-in screen, or moves on to home when already signed in
func (h *Handler) HandleSignInScreen(w http.ResponseWriter, r *http.Request) {
	if session, err := h.auth.Session(r.Context()); err == nil && session.Authenticated() {
		h.navigate(w, r, models.DestinationHome, nil)
		return
	}
	utils.WriteJSON(w, Screen{
		Screen:  "sign-in",
		Alert:   alertFromQuery(r.URL.Query()),
		Actions: []string{"POST /auth/sign-in", "POST /auth/sign-up", "GET /auth/oauth/" + h.auth.Provider()},
	})
}

// HandleSignIn signs in with the posted email and password
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid_request", Alert{Title: constants.AlertError, Message: "Failed to parse form"})
		return
	}

	_, err := h.auth.SignIn(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		title := constants.AlertSignInFailed
		if credentials.IsValidation(err) {
			title = constants.AlertError
		}
		h.navigate(w, r, models.DestinationSignIn, &Alert{Title: title, Message: models.Message(err, constants.FallbackMessage)})
		return
	}
	h.navigate(w, r, models.DestinationHome, nil)
}

// HandleSignUp creates an account; the user verifies by email before signing in
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid_request", Alert{Title: constants.AlertError, Message: "Failed to parse form"})
		return
	}

	result, err := h.auth.SignUp(r.Context(), credentials.SignUpForm{
		FullName:        r.PostForm.Get("full_name"),
		Phone:           r.PostForm.Get("phone"),
		Email:           r.PostForm.Get("email"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirm_password"),
	})
	switch {
	case errors.Is(err, models.ErrEmailAlreadyRegistered):
		h.navigate(w, r, models.DestinationSignIn, &Alert{Title: constants.AlertEmailRegistered, Message: err.Error()})
	case credentials.IsValidation(err):
		utils.WriteJSON(w, Screen{Screen: "sign-up", Alert: &Alert{Title: constants.AlertError, Message: err.Error()}})
	case err != nil:
		utils.WriteJSON(w, Screen{Screen: "sign-up", Alert: &Alert{Title: constants.AlertSignUpFailed, Message: models.Message(err, constants.FallbackMessage)}})
	case result.Session != nil:
		h.navigate(w, r, models.DestinationHome, nil)
	default:
		h.navigate(w, r, models.DestinationSignIn, &Alert{Title: constants.AlertVerifyEmail, Message: constants.VerifyEmailMessage})
	}
}

// HandleResend sends the verification email again
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid_request", Alert{Title: constants.AlertError, Message: "Failed to parse form"})
		return
	}

	err := h.auth.ResendVerification(r.Context(), r.PostForm.Get("email"))
	alert := &Alert{Title: constants.AlertVerificationSent, Message: constants.VerificationSentMessage}
	switch {
	case errors.Is(err, credentials.ErrInvalidEmail):
		alert = &Alert{Title: constants.AlertInvalidEmail, Message: constants.InvalidResendMessage}
	case err != nil:
		alert = &Alert{Title: constants.AlertResendFailed, Message: models.Message(err, constants.FallbackMessage)}
	}
	utils.WriteJSON(w, Screen{Screen: "sign-up", Alert: alert})
}

// HandleSignOut ends the session
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context()); err != nil {
		h.log.Error("sign out failed", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "sign_out_failed", Alert{Title: constants.AlertError, Message: models.Message(err, constants.FallbackMessage)})
		return
	}
	h.navigate(w, r, models.DestinationSignIn, nil)
}

// HandleVerified is where email verification links land
func (h *Handler) HandleVerified(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSON(w, Screen{
		Screen:  "verified",
		Alert:   &Alert{Title: constants.AlertEmailVerified, Message: constants.EmailVerifiedMessage},
		Actions: []string{"GET /auth/sign-in"},
	})
}

// HandleHome shows the signed-in user
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	screen := Screen{Screen: "home", Actions: []string{"POST /auth/sign-out"}}
	if session := middleware.SessionFromContext(r.Context()); session != nil {
		screen.User = session.User
	}
	utils.WriteJSON(w, screen)
}

// navigate replaces the current screen with dest, carrying alert in the query
func (h *Handler) navigate(w http.ResponseWriter, r *http.Request, dest models.Destination, alert *Alert) {
	target := string(dest)
	if alert != nil {
		q := url.Values{}
		q.Set(AlertTitleParam, alert.Title)
		q.Set(AlertMessageParam, alert.Message)
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// requestURL rebuilds the absolute URL the browser requested
func (h *Handler) requestURL(r *http.Request) string {
	origin := h.auth.Environment().Origin
	if origin == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		origin = scheme + "://" + r.Host
	}
	return strings.TrimSuffix(origin, "/") + r.URL.RequestURI()
}

func alertFromQuery(q url.Values) *Alert {
	title := q.Get(AlertTitleParam)
	if title == "" {
		return nil
	}
	return &Alert{Title: title, Message: q.Get(AlertMessageParam)}
}

// page collects the navigation and alert of one resolver run. Only the first navigation counts.
type page struct {
	mu      sync.Mutex
	dest    models.Destination
	alerted *Alert
}

func (p *page) Replace(dest models.Destination) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dest == "" {
		p.dest = dest
	}
}

func (p *page) Alert(title, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.alerted == nil {
		p.alerted = &Alert{Title: title, Message: message}
	}
}

func (p *page) destination() models.Destination {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dest
}

func (p *page) alert() *Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alerted
}

// redirectBrowser turns the web initiator's browser redirect into an HTTP redirect
type redirectBrowser struct {
	w          http.ResponseWriter
	r          *http.Request
	redirected bool
}

func (b *redirectBrowser) Redirect(_ context.Context, link string) error {
	http.Redirect(b.w, b.r, link, http.StatusFound)
	b.redirected = true
	return nil
}

func (b *redirectBrowser) OpenAuthSession(context.Context, string, string) (models.BrowserResult, error) {
	return models.BrowserResult{}, errors.New("in-app browser sessions are not available on web")
}
