package main

import (
	"sync"

	"github.com/pterm/pterm"

	"github.com/brizzai/clgmart/internal/auth/models"
)

type alert struct {
	title   string
	message string
}

// terminalScreen is the CLI's navigator and alerter. It records where the flow
// went so the result can be printed once the spinner has stopped.
type terminalScreen struct {
	mu     sync.Mutex
	dest   models.Destination
	alerts []alert
}

func (s *terminalScreen) Replace(dest models.Destination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dest = dest
}

func (s *terminalScreen) Alert(title, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert{title: title, message: message})
}

func (s *terminalScreen) destination() models.Destination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dest
}

// render prints the alerts and the screen the flow ended on
func (s *terminalScreen) render(session *models.Session) {
	s.mu.Lock()
	dest, alerts := s.dest, s.alerts
	s.alerts = nil
	s.mu.Unlock()

	for _, a := range alerts {
		pterm.Error.Printfln("%s: %s", a.title, a.message)
	}

	switch dest {
	case models.DestinationHome:
		printSignedIn(session)
	case models.DestinationSignIn:
		pterm.Info.Println("You are not signed in. Run \"clgmart login\" or \"clgmart signin\".")
	case models.DestinationVerified:
		pterm.Success.Println("Email verified. You can sign in now.")
	}
}

func printSignedIn(session *models.Session) {
	if session == nil || session.User == nil {
		pterm.Success.Println("Signed in")
		return
	}
	pterm.Success.Printfln("Signed in as %s", pterm.LightGreen(session.User.Email))
}

func printAlert(title, message string) {
	pterm.Warning.Printfln("%s: %s", title, message)
}
