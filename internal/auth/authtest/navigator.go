package authtest

import (
	"context"
	"sync"

	"github.com/brizzai/clgmart/internal/auth/models"
)

// Navigator records Replace calls
type Navigator struct {
	mu    sync.Mutex
	calls []models.Destination
}

func (n *Navigator) Replace(dest models.Destination) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, dest)
}

// Calls returns the destinations navigated to, in order
func (n *Navigator) Calls() []models.Destination {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Destination(nil), n.calls...)
}

// Alert is one recorded alert
type Alert struct {
	Title   string
	Message string
}

// Alerter records alerts
type Alerter struct {
	mu     sync.Mutex
	alerts []Alert
}

func (a *Alerter) Alert(title, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, Alert{Title: title, Message: message})
}

// Alerts returns the recorded alerts
func (a *Alerter) Alerts() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Alert(nil), a.alerts...)
}

// Browser is a scripted browser for the OAuth initiator
type Browser struct {
	mu sync.Mutex

	Result     models.BrowserResult
	Err        error
	Redirected []string
	Opened     []OpenCall
}

// OpenCall records one OpenAuthSession invocation
type OpenCall struct {
	AuthURL   string
	ReturnURL string
}

func (b *Browser) Redirect(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Redirected = append(b.Redirected, url)
	return b.Err
}

func (b *Browser) OpenAuthSession(_ context.Context, authURL, returnURL string) (models.BrowserResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Opened = append(b.Opened, OpenCall{AuthURL: authURL, ReturnURL: returnURL})
	if b.Err != nil {
		return models.BrowserResult{}, b.Err
	}
	return b.Result, nil
}
