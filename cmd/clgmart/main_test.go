package main

import (
	"testing"

	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestTerminalScreen_KeepsLastDestination(t *testing.T) {
	screen := &terminalScreen{}
	screen.Replace(models.DestinationSignIn)
	screen.Alert("Auth error", "code expired")
	screen.Replace(models.DestinationHome)

	assert.Equal(t, models.DestinationHome, screen.destination())
	assert.Len(t, screen.alerts, 1)

	screen.render(&models.Session{User: &models.User{ID: "user-1", Email: "ada@example.com"}})
	assert.Empty(t, screen.alerts, "alerts are printed once")
}

func TestWebConfig(t *testing.T) {
	cfg := &config.Config{
		Platform: config.PlatformConfig{Kind: config.PlatformNative},
		Server:   config.ServerConfig{Host: "localhost", Port: 8081},
	}
	webConfig(cfg)
	assert.Equal(t, config.PlatformWeb, cfg.Platform.Kind)
	assert.Equal(t, "http://localhost:8081", cfg.Platform.Origin)

	cfg.Platform.Origin = "https://clgmart.example"
	webConfig(cfg)
	assert.Equal(t, "https://clgmart.example", cfg.Platform.Origin)
}

func TestRootCommands(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"login", "callback", "signin", "signup", "resend", "session", "whoami", "logout", "serve"} {
		assert.Contains(t, names, want)
	}
}
