package score

import (
	"github.com/nooogy1/FantasyPetDiscord/internal/score/service"
	"go.uber.org/fx"
)

var Module = fx.Module("score.service",
	fx.Provide(service.NewService),
)
