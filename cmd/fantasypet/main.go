package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/nooogy1/FantasyPetDiscord/internal/announce"
	"github.com/nooogy1/FantasyPetDiscord/internal/audit"
	"github.com/nooogy1/FantasyPetDiscord/internal/checker"
	"github.com/nooogy1/FantasyPetDiscord/internal/clock"
	"github.com/nooogy1/FantasyPetDiscord/internal/config"
	"github.com/nooogy1/FantasyPetDiscord/internal/league"
	"github.com/nooogy1/FantasyPetDiscord/internal/migration"
	"github.com/nooogy1/FantasyPetDiscord/internal/notify"
	"github.com/nooogy1/FantasyPetDiscord/internal/observability/logger"
	"github.com/nooogy1/FantasyPetDiscord/internal/observability/tracing"
	"github.com/nooogy1/FantasyPetDiscord/internal/pet"
	"github.com/nooogy1/FantasyPetDiscord/internal/photo"
	"github.com/nooogy1/FantasyPetDiscord/internal/roster"
	"github.com/nooogy1/FantasyPetDiscord/internal/score"
	"github.com/nooogy1/FantasyPetDiscord/internal/seed"
	"github.com/nooogy1/FantasyPetDiscord/internal/server"
	"github.com/nooogy1/FantasyPetDiscord/internal/state"
	"github.com/nooogy1/FantasyPetDiscord/pkg/db"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			return seed.EnsureDefaults(conn, cfg)
		}),
		clock.Module,
		state.Module,
		pet.Module,
		league.Module,
		roster.Module,
		score.Module,
		notify.Module,
		photo.Module,
		announce.Module,
		checker.Module,
		audit.Module,
		server.Module,
	)
	app.Run()
}
