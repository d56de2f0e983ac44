package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	leaguedomain "github.com/nooogy1/FantasyPetDiscord/internal/league/domain"
	"github.com/nooogy1/FantasyPetDiscord/pkg/repository"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	leaguerepo repository.Repository[leaguedomain.League]
	userrepo   repository.Repository[leaguedomain.User]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) leaguedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("league.service"),

		genID:      p.GenID,
		leaguerepo: repository.ProvideStore[leaguedomain.League](p.DB),
		userrepo:   repository.ProvideStore[leaguedomain.User](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, slug, name, channelID, webhookURL string) (*leaguedomain.League, error) {
	slug = normalizeSlug(slug)
	if slug == "" {
		return nil, leaguedomain.ErrInvalidSlug
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = slug
	}

	now := time.Now().UTC()
	league := &leaguedomain.League{
		ID:         s.genID.Generate(),
		Slug:       slug,
		Name:       name,
		ChannelID:  strings.TrimSpace(channelID),
		WebhookURL: strings.TrimSpace(webhookURL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.leaguerepo.Create(ctx, league); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, leaguedomain.ErrSlugTaken
		}
		return nil, err
	}
	s.log.Info("league created", zap.String("slug", slug), zap.String("channel_id", league.ChannelID))
	return league, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*leaguedomain.League, error) {
	slug = normalizeSlug(slug)
	if slug == "" {
		return nil, leaguedomain.ErrInvalidSlug
	}
	league, err := s.leaguerepo.FindOne(ctx, leaguedomain.League{Slug: slug})
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, leaguedomain.ErrLeagueNotFound
	}
	return league, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*leaguedomain.League, error) {
	if id == 0 {
		return nil, leaguedomain.ErrLeagueNotFound
	}
	league, err := s.leaguerepo.FindOne(ctx, leaguedomain.League{ID: id})
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, leaguedomain.ErrLeagueNotFound
	}
	return league, nil
}

func (s *Service) List(ctx context.Context) ([]leaguedomain.League, error) {
	return s.leaguerepo.Find(ctx, leaguedomain.League{}, repository.WithOrder("slug"))
}

func (s *Service) FindByChannel(ctx context.Context, channelID string) (*leaguedomain.League, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, leaguedomain.ErrLeagueNotFound
	}
	league, err := s.leaguerepo.FindOne(ctx, leaguedomain.League{ChannelID: channelID})
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, leaguedomain.ErrLeagueNotFound
	}
	return league, nil
}

// EnsureUser records the platform account so history and leaderboard
// rows can join a display name. Repeated calls refresh the name.
func (s *Service) EnsureUser(ctx context.Context, id, displayName string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("invalid_user_id")
	}
	now := time.Now().UTC()
	user := &leaguedomain.User{
		ID:          id,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.userrepo.Upsert(ctx, user, []string{"id"}, []string{"display_name", "updated_at"})
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
