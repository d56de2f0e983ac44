package roster

import (
	"github.com/nooogy1/FantasyPetDiscord/internal/roster/service"
	"go.uber.org/fx"
)

var Module = fx.Module("roster.service",
	fx.Provide(service.NewService),
)
