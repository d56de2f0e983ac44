package state

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("state",
	fx.Provide(NewStore),
	fx.Invoke(func(lc fx.Lifecycle, store *Store) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return store.Load(ctx)
			},
		})
	}),
)
