// Package redirect computes the URLs an external consent step returns to.
package redirect

import (
	"fmt"
	"strings"

	"github.com/brizzai/clgmart/internal/config"
)

// Platform is where the app is running
type Platform = config.PlatformKind

const (
	PlatformWeb    = config.PlatformWeb
	PlatformNative = config.PlatformNative
)

// Environment describes the running app once, so the flow components never branch on globals.
type Environment struct {
	Kind         Platform
	Origin       string // web page origin, empty when there is no document (e.g. server rendering)
	Scheme       string // registered deep-link scheme on native
	CallbackPath string
	VerifiedPath string
	// LoopbackAddr, when set on native, receives the OAuth callback on a local listener instead of the deep link
	LoopbackAddr string
}

// NewEnvironment builds the descriptor from the platform section of the config
func NewEnvironment(cfg *config.Config) Environment {
	env := Environment{
		Kind:         cfg.Platform.Kind,
		Origin:       strings.TrimSuffix(cfg.Platform.Origin, "/"),
		Scheme:       cfg.Platform.Scheme,
		CallbackPath: cfg.Platform.CallbackPath,
		VerifiedPath: cfg.Platform.VerifiedPath,
	}
	if env.Kind == PlatformNative && cfg.OAuth.LoopbackPort > 0 {
		env.LoopbackAddr = fmt.Sprintf("127.0.0.1:%d", cfg.OAuth.LoopbackPort)
	}
	return env
}

// IsWeb reports whether a full-page redirect is used instead of an in-app browser session
func (e Environment) IsWeb() bool {
	return e.Kind == PlatformWeb
}

// Resolve returns the platform URL for path, or false when it cannot be determined.
//
//	web:    https://clgmart.app + /auth/callback -> https://clgmart.app/auth/callback
//	native: clgmart + /auth/callback            -> clgmart://auth/callback
func Resolve(env Environment, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	switch env.Kind {
	case PlatformWeb:
		if env.Origin == "" {
			return "", false
		}
		return env.Origin + path, true
	case PlatformNative:
		if env.Scheme == "" {
			return "", false
		}
		return env.Scheme + "://" + strings.TrimPrefix(path, "/"), true
	default:
		return "", false
	}
}

// CallbackURL is where the OAuth provider sends the user after consent
func (e Environment) CallbackURL() (string, bool) {
	if e.Kind == PlatformNative && e.LoopbackAddr != "" && e.CallbackPath != "" {
		return "http://" + e.LoopbackAddr + "/" + strings.TrimPrefix(e.CallbackPath, "/"), true
	}
	return Resolve(e, e.CallbackPath)
}

// VerifiedURL is where email verification links land
func (e Environment) VerifiedURL() (string, bool) {
	return Resolve(e, e.VerifiedPath)
}
