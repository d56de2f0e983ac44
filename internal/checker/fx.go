package checker

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("checker",
	fx.Provide(NewChecker),
	fx.Invoke(runChecker),
)

func runChecker(lc fx.Lifecycle, checker *Checker) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go checker.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
