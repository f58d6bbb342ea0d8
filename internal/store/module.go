package store

import (
	"context"
	"io"

	"github.com/brizzai/clgmart/internal/config"
	"go.uber.org/fx"
)

func newStorage(lc fx.Lifecycle, cfg *config.Config) (Storage, error) {
	s, err := New(&cfg.Storage)
	if err != nil {
		return nil, err
	}
	if closer, ok := s.(io.Closer); ok {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return closer.Close()
			},
		})
	}
	return s, nil
}

// Module provides the configured Storage
var Module = fx.Module("store",
	fx.Provide(newStorage),
)
