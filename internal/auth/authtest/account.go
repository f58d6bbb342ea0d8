package authtest

import (
	"context"
	"errors"

	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/auth/providers"
)

// ErrInvalidCredentials is returned by SignInWithPassword for a wrong password
var ErrInvalidCredentials = errors.New("Invalid login credentials")

// Account records the password and email operations on Backend
type Account struct {
	Password      string
	ConfirmSignUp bool // when true SignUp returns no session
	SignUps       []models.SignUpRequest
	Resends       []ResendCall
	SignOuts      int
	SignUpErr     error
	ResendErr     error
}

// ResendCall records one ResendSignUpEmail invocation
type ResendCall struct {
	Email      string
	RedirectTo string
}

// AccountBackend is a Backend that also implements the account operations
type AccountBackend struct {
	*Backend
	Account Account
}

// NewAccountBackend returns an AccountBackend whose user signs in with password
func NewAccountBackend(password string, codes ...string) *AccountBackend {
	return &AccountBackend{
		Backend: NewBackend(codes...),
		Account: Account{Password: password},
	}
}

func (b *AccountBackend) SignInWithPassword(_ context.Context, email, password string) (*models.Session, error) {
	b.mu.Lock()
	if password != b.Account.Password {
		b.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	session := b.newSessionLocked()
	b.session = session
	b.mu.Unlock()

	b.Emit(models.EventSignedIn, session)
	return session, nil
}

func (b *AccountBackend) SignUp(_ context.Context, req models.SignUpRequest) (*models.SignUpResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Account.SignUps = append(b.Account.SignUps, req)
	if b.Account.SignUpErr != nil {
		return nil, b.Account.SignUpErr
	}
	user := &models.User{ID: "user-new", Email: req.Email}
	if b.Account.ConfirmSignUp {
		return &models.SignUpResult{User: user}, nil
	}
	return &models.SignUpResult{User: user, Session: &models.Session{AccessToken: "access-token", User: user}}, nil
}

func (b *AccountBackend) ResendSignUpEmail(_ context.Context, email, redirectTo string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Account.Resends = append(b.Account.Resends, ResendCall{Email: email, RedirectTo: redirectTo})
	return b.Account.ResendErr
}

func (b *AccountBackend) GetUser(_ context.Context) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, errors.New("Auth session missing!")
	}
	return b.session.User, nil
}

func (b *AccountBackend) SignOut(_ context.Context) error {
	b.mu.Lock()
	b.session = nil
	b.Account.SignOuts++
	b.mu.Unlock()

	b.Emit(models.EventSignedOut, nil)
	return nil
}

var _ providers.AccountBackend = (*AccountBackend)(nil)
