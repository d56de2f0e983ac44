package pet

import (
	"github.com/nooogy1/FantasyPetDiscord/internal/pet/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("pet",
	fx.Provide(repository.Provide),
)
