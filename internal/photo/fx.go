package photo

import "go.uber.org/fx"

var Module = fx.Module("photo",
	fx.Provide(NewPrefetcher),
)
