// Package db owns the shared gorm connection. Every repository receives
// the same *gorm.DB through fx.
package db

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nooogy1/FantasyPetDiscord/internal/config"
)

// Module provides the database connection to the fx graph.
var Module = fx.Module("db",
	fx.Provide(New),
)

// Params collects the dependencies required to open the connection.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// New opens the postgres connection described by the configuration and
// registers lifecycle hooks that verify and close it.
func New(p Params) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(p.Config.DatabaseURL), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			p.Log.Info("database connected")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Log.Info("database closing")
			return sqlDB.Close()
		},
	})

	return conn, nil
}
