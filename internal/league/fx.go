package league

import (
	"github.com/nooogy1/FantasyPetDiscord/internal/league/service"
	"go.uber.org/fx"
)

var Module = fx.Module("league.service",
	fx.Provide(service.NewService),
)
