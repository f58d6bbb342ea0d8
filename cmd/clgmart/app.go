package main

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/brizzai/clgmart/internal/auth"
	"github.com/brizzai/clgmart/internal/config"
	"github.com/brizzai/clgmart/internal/logger"
	"github.com/brizzai/clgmart/internal/server"
	"github.com/brizzai/clgmart/internal/store"
	"github.com/brizzai/clgmart/internal/supabase"
	"github.com/brizzai/clgmart/internal/tui"
)

const (
	finishingTitle = "Finishing sign in…"
	signedInTitle  = "Signed in"
)

// newApp assembles the dependency graph for one command
func newApp(cfg *config.Config, populate ...interface{}) *fx.App {
	return fx.New(
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger.Named("fx")}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		store.Module,
		supabase.Module,
		auth.Module,
		server.Module,
		fx.Populate(populate...),
	)
}

// withService starts the app, runs fn with the auth service and stops the app again
func withService(ctx context.Context, fn func(ctx context.Context, svc *auth.Service) error) error {
	var svc *auth.Service
	app := newApp(cfg, &svc)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start app: %w", err)
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			logger.Warn("failed to stop app cleanly", zap.Error(err))
		}
	}()

	return fn(ctx, svc)
}

// wait runs task behind the spinner unless --no-spinner was given
func wait(ctx context.Context, task tui.Task) error {
	if noSpinner {
		logger.Info(finishingTitle)
		return task(ctx)
	}
	return tui.Wait(ctx, finishingTitle, signedInTitle, task)
}
