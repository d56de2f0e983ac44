package announce

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("announce",
	fx.Provide(NewQueue),
	fx.Provide(NewDrainer),
	fx.Invoke(runDrainer),
)

func runDrainer(lc fx.Lifecycle, drainer *Drainer) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go drainer.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
