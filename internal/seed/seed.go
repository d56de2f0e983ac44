// Package seed bootstraps the default league and breed values on first
// boot so a fresh deployment announces and scores without manual setup.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/nooogy1/FantasyPetDiscord/internal/config"
)

const (
	defaultLeagueSlug = "main"
	defaultLeagueName = "Main League"
)

// starterBreedValues give common breeds a point value out of the box.
// Operators overwrite these rows to tune scoring; EnsureDefaults never
// touches an existing row.
var starterBreedValues = map[string]int64{
	"labrador":         2,
	"golden retriever": 2,
	"beagle":           3,
	"siamese":          3,
	"tabby":            1,
	"greyhound":        5,
}

// EnsureDefaults seeds the default league and the starter breed values.
// Every statement is an insert-if-absent, so reruns are no-ops.
func EnsureDefaults(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if !cfg.SeedDefaults {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDefaultLeague(ctx, tx, node, cfg.AdoptionChannelID); err != nil {
			return err
		}
		return ensureBreedValues(ctx, tx)
	})
}

func ensureDefaultLeague(ctx context.Context, tx *gorm.DB, node *snowflake.Node, channelID string) error {
	var existing int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM leagues WHERE slug = ?`, defaultLeagueSlug,
	).Scan(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	return tx.WithContext(ctx).Exec(
		`INSERT INTO leagues (id, slug, name, channel_id, webhook_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		node.Generate(), defaultLeagueSlug, defaultLeagueName, channelID,
	).Error
}

func ensureBreedValues(ctx context.Context, tx *gorm.DB) error {
	for breed, points := range starterBreedValues {
		err := tx.WithContext(ctx).Exec(
			`INSERT INTO breed_values (breed, points, updated_at)
			 VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT (breed) DO NOTHING`,
			breed, points,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}
