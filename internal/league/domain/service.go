package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrLeagueNotFound = errors.New("league_not_found")
	ErrInvalidSlug    = errors.New("invalid_slug")
	ErrSlugTaken      = errors.New("slug_taken")
)

// Service manages leagues and the users claiming in them.
type Service interface {
	Create(ctx context.Context, slug, name, channelID, webhookURL string) (*League, error)
	GetBySlug(ctx context.Context, slug string) (*League, error)
	GetByID(ctx context.Context, id snowflake.ID) (*League, error)
	List(ctx context.Context) ([]League, error)
	FindByChannel(ctx context.Context, channelID string) (*League, error)
	EnsureUser(ctx context.Context, id, displayName string) error
}
