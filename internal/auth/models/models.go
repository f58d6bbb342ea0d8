package models

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// User is the account attached to a session, as returned by the auth backend
type User struct {
	ID               string                 `json:"id" yaml:"id"`
	Email            string                 `json:"email,omitempty" yaml:"email,omitempty"`
	Phone            string                 `json:"phone,omitempty" yaml:"phone,omitempty"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty" yaml:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty" yaml:"user_metadata,omitempty"`
	AppMetadata      map[string]interface{} `json:"app_metadata,omitempty" yaml:"app_metadata,omitempty"`
}

// Session is the opaque token bundle issued by the auth backend.
// The app reads and stores it but never builds one itself.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Authenticated reports whether the session identifies a user
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil && s.User.ID != ""
}

// Expiry returns the absolute expiry time, zero when unknown
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// Token converts the session to an oauth2 token for authenticated HTTP calls
func (s *Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry(),
	}
}

// AuthEvent names an auth-state change emitted by the backend client
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// Destination is a logical screen the flow navigates to
type Destination string

const (
	DestinationHome     Destination = "/home"
	DestinationSignIn   Destination = "/auth/sign-in"
	DestinationVerified Destination = "/auth/verified"
)

// OutcomeKind enumerates the result of one resolution attempt
type OutcomeKind int

const (
	OutcomeNoSession OutcomeKind = iota
	OutcomeAuthenticated
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeError:
		return "error"
	default:
		return "no_session"
	}
}

// Outcome is produced once per resolution attempt
type Outcome struct {
	Kind    OutcomeKind
	Session *Session
	Err     error
}

// Destination picks the screen for this outcome
func (o Outcome) Destination() Destination {
	if o.Kind == OutcomeAuthenticated {
		return DestinationHome
	}
	return DestinationSignIn
}

// BrowserResultType is how a system browser session ended
type BrowserResultType string

const (
	BrowserSuccess BrowserResultType = "success"
	BrowserCancel  BrowserResultType = "cancel"
	BrowserDismiss BrowserResultType = "dismiss"
)

// BrowserResult is returned by an authenticated browsing session
type BrowserResult struct {
	Type BrowserResultType
	URL  string
}

// OAuthOptions configures the start of a provider sign-in
type OAuthOptions struct {
	RedirectTo          string
	Scopes              string
	SkipBrowserRedirect bool
}

// SignUpRequest carries the sign-up form after validation
type SignUpRequest struct {
	Email      string
	Password   string
	FullName   string
	Phone      string
	RedirectTo string
}

// SignUpResult holds the created user and, when no confirmation is needed, a session
type SignUpResult struct {
	User    *User
	Session *Session
}

// ErrEmailAlreadyRegistered is returned by sign-up when the address already has an account
var ErrEmailAlreadyRegistered = errors.New("This email already has an account. Please sign in instead.")

// Message returns err's text for a user-visible alert, or fallback when there is none
func Message(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
