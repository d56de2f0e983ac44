package audit

import (
	"github.com/nooogy1/FantasyPetDiscord/internal/audit/repository"
	"github.com/nooogy1/FantasyPetDiscord/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
