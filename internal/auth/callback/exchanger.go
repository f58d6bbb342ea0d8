// Package callback turns a returned redirect URL into a backend session.
package callback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brizzai/clgmart/internal/auth/constants"
	"github.com/brizzai/clgmart/internal/auth/providers"
	"github.com/brizzai/clgmart/internal/logger"
	"go.uber.org/zap"
)

const codeParam = constants.CodeQueryParam

// claimTTL is how long a used code is remembered. Backend codes expire well before this.
const claimTTL = 10 * time.Minute

// ErrCodeConsumed is returned when a code has already been handed to the backend
var ErrCodeConsumed = errors.New("authorization code already used")

// Exchanger parses redirect URLs and exchanges their authorization codes.
// Each code is sent to the backend at most once per Exchanger.
type Exchanger struct {
	backend providers.Backend
	log     *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	consumed map[string]time.Time
}

// NewExchanger creates an Exchanger over backend
func NewExchanger(backend providers.Backend) *Exchanger {
	return &Exchanger{
		backend:  backend,
		log:      logger.Named("callback"),
		now:      time.Now,
		consumed: make(map[string]time.Time),
	}
}

// ExchangeCode establishes a backend session from the code on rawURL.
// A URL without a code is a no-op: the user cancelled or the provider sent nothing to exchange.
func (e *Exchanger) ExchangeCode(ctx context.Context, rawURL string) error {
	params := ParseQuery(rawURL) // query only; a code in the fragment is not exchanged
	code := params[codeParam]
	if code == "" {
		if reason := params[constants.ErrorQueryParam]; reason != "" {
			e.log.Info("redirect carried no code",
				zap.String("error", reason),
				zap.String("error_description", params[constants.ErrorDescriptionQueryParam]),
			)
		}
		return nil
	}

	if !e.claim(code) {
		e.log.Warn("refusing to exchange code twice", logger.Secret("code", code))
		return ErrCodeConsumed
	}

	e.log.Debug("exchanging authorization code", logger.Secret("code", code))
	if _, err := e.backend.ExchangeCodeForSession(ctx, code); err != nil {
		e.log.Warn("code exchange failed", zap.Error(err))
		return err
	}
	return nil
}

// claim marks code as used and reports whether this caller was first.
// A failed exchange leaves the code claimed; codes are single-use on the backend too.
// Claims older than claimTTL are dropped.
func (e *Exchanger) claim(code string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for c, at := range e.consumed {
		if now.Sub(at) > claimTTL {
			delete(e.consumed, c)
		}
	}

	if _, used := e.consumed[code]; used {
		return false
	}
	e.consumed[code] = now
	return true
}
