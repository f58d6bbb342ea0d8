package supabase

import (
	"github.com/brizzai/clgmart/internal/auth/providers"
	"github.com/brizzai/clgmart/internal/config"
	"github.com/brizzai/clgmart/internal/store"
	"go.uber.org/fx"
)

func newClient(cfg *config.Config, storage store.Storage) (*Client, error) {
	return NewClient(&cfg.Supabase, storage)
}

// Module provides the auth API client as the app's AccountBackend
var Module = fx.Module("supabase",
	fx.Provide(
		fx.Annotate(
			newClient,
			fx.As(new(providers.AccountBackend)),
		),
	),
)
