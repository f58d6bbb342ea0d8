// Package resolver decides where the app goes once sign-in signals arrive.
//
// Several signals can resolve the same screen: the URL the app was launched with, a URL
// opened while mounted, a plain session check, and auth-state events from the backend.
// They may run concurrently. A compare-and-set state machine lets only the first
// authenticated result navigate home, and nothing navigates after Unmount.
package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/brizzai/clgmart/internal/auth/callback"
	"github.com/brizzai/clgmart/internal/auth/constants"
	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/auth/providers"
	"github.com/brizzai/clgmart/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State of a mounted resolver
type State int32

const (
	StateUnresolved State = iota
	StateResolving
	StateAuthenticated
	StateAnonymous
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Navigator replaces the current screen; no back-stack entry is kept
type Navigator interface {
	Replace(dest models.Destination)
}

// Alerter shows a message to the user
type Alerter interface {
	Alert(title, message string)
}

// Resolver is one mounted instance of the session-resolution screen
type Resolver struct {
	backend   providers.Backend
	exchanger *callback.Exchanger
	nav       Navigator
	alerts    Alerter
	log       *zap.Logger

	state atomic.Int32

	// mu orders the navigation decision against Unmount
	mu          sync.Mutex
	mounted     bool
	unsubscribe func()
}

// New creates an unmounted Resolver
func New(backend providers.Backend, exchanger *callback.Exchanger, nav Navigator, alerts Alerter) *Resolver {
	return &Resolver{
		backend:   backend,
		exchanger: exchanger,
		nav:       nav,
		alerts:    alerts,
		log:       logger.Named("resolver"),
	}
}

// State returns the current state
func (r *Resolver) State() State {
	return State(r.state.Load())
}

// Mount subscribes to auth-state changes and resolves the launch URL, or the
// stored session when the app was not opened through a link.
func (r *Resolver) Mount(ctx context.Context, initialURL string) models.Outcome {
	r.mu.Lock()
	first := !r.mounted && r.unsubscribe == nil
	r.mounted = true
	r.mu.Unlock()

	if first {
		// subscribe outside mu: a backend may deliver an event synchronously
		unsubscribe := r.backend.OnAuthStateChange(r.onAuthStateChange)
		r.mu.Lock()
		if r.mounted {
			r.unsubscribe = unsubscribe
			unsubscribe = nil
		}
		r.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
	}

	if initialURL != "" {
		return r.resolve(ctx, "initial_url", initialURL)
	}
	return r.resolve(ctx, "session_check", "")
}

// HandleURL resolves a URL opened while the screen is mounted
func (r *Resolver) HandleURL(ctx context.Context, rawURL string) models.Outcome {
	return r.resolve(ctx, "url_open", rawURL)
}

// CheckSession resolves from the stored session alone
func (r *Resolver) CheckSession(ctx context.Context) models.Outcome {
	return r.resolve(ctx, "session_check", "")
}

// Unmount stops event delivery. Attempts still in flight finish but no longer navigate.
func (r *Resolver) Unmount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mounted = false
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

func (r *Resolver) onAuthStateChange(event models.AuthEvent, session *models.Session) {
	if !session.Authenticated() {
		return
	}
	r.log.Debug("auth state changed", zap.String("event", string(event)))
	r.settle(r.log.With(zap.String("entry", "auth_state")), models.Outcome{
		Kind:    models.OutcomeAuthenticated,
		Session: session,
	})
}

func (r *Resolver) resolve(ctx context.Context, entry, rawURL string) models.Outcome {
	log := r.log.With(zap.String("attempt", uuid.NewString()), zap.String("entry", entry))
	r.state.CompareAndSwap(int32(StateUnresolved), int32(StateResolving))

	outcome := r.attempt(ctx, log, rawURL)
	r.settle(log, outcome)
	return outcome
}

func (r *Resolver) attempt(ctx context.Context, log *zap.Logger, rawURL string) models.Outcome {
	if rawURL != "" {
		err := r.exchanger.ExchangeCode(ctx, rawURL)
		switch {
		case errors.Is(err, callback.ErrCodeConsumed):
			// another entry point already exchanged this code; its session decides
			log.Debug("code already exchanged by another entry point")
		case err != nil:
			return models.Outcome{Kind: models.OutcomeError, Err: err}
		}
	}

	session, err := r.backend.GetSession(ctx)
	if err != nil {
		return models.Outcome{Kind: models.OutcomeError, Err: err}
	}
	if session.Authenticated() {
		return models.Outcome{Kind: models.OutcomeAuthenticated, Session: session}
	}
	return models.Outcome{Kind: models.OutcomeNoSession}
}

// settle applies an outcome: navigate if the transition wins, alert on errors.
// The decision is taken under mu; Replace and Alert run after it is released,
// so a navigator may unmount the screen it is replacing.
func (r *Resolver) settle(log *zap.Logger, outcome models.Outcome) {
	var (
		dest    models.Destination
		message string
	)

	r.mu.Lock()
	if !r.mounted {
		r.mu.Unlock()
		log.Debug("ignoring outcome after unmount", zap.Stringer("outcome", outcome.Kind))
		return
	}

	switch outcome.Kind {
	case models.OutcomeAuthenticated:
		if r.transition(StateAuthenticated) {
			log.Info("signed in, navigating home")
			dest = models.DestinationHome
		}
	case models.OutcomeNoSession:
		if r.transition(StateAnonymous) {
			log.Info("no session, navigating to sign-in")
			dest = models.DestinationSignIn
		}
	case models.OutcomeError:
		if r.State() == StateAuthenticated {
			log.Debug("ignoring error after sign-in", zap.Error(outcome.Err))
			break
		}
		log.Warn("session resolution failed", zap.Error(outcome.Err))
		message = models.Message(outcome.Err, constants.FallbackResolveMessage)
		if r.transition(StateErrored) {
			dest = models.DestinationSignIn
		}
	}
	r.mu.Unlock()

	if message != "" {
		r.alerts.Alert(constants.AlertAuthError, message)
	}
	if dest != "" {
		r.nav.Replace(dest)
	}
}

// transition moves to `to` unless the current state forbids it.
// Authenticated is final. Anonymous and Errored can only be entered from an
// unsettled state, so the sign-in screen is navigated to at most once, but
// both can still be upgraded to Authenticated.
func (r *Resolver) transition(to State) bool {
	for {
		cur := r.State()
		if !canTransition(cur, to) {
			return false
		}
		if r.state.CompareAndSwap(int32(cur), int32(to)) {
			return true
		}
	}
}

func canTransition(from, to State) bool {
	if from == StateAuthenticated {
		return false
	}
	if to == StateAuthenticated {
		return true
	}
	return from == StateUnresolved || from == StateResolving
}
