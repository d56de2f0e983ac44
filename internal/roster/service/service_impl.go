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

	"github.com/nooogy1/FantasyPetDiscord/internal/config"
	leaguedomain "github.com/nooogy1/FantasyPetDiscord/internal/league/domain"
	petdomain "github.com/nooogy1/FantasyPetDiscord/internal/pet/domain"
	rosterdomain "github.com/nooogy1/FantasyPetDiscord/internal/roster/domain"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	leagues  leaguedomain.Service
	pets     petdomain.Repository
	capacity int
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Config  config.Config
	Leagues leaguedomain.Service
	Pets    petdomain.Repository
}

func NewService(p ServiceParam) rosterdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("roster.service"),

		genID:    p.GenID,
		leagues:  p.Leagues,
		pets:     p.Pets,
		capacity: p.Config.RosterCapacity,
	}
}

// Claim validates and stakes one claim. Validation order matters for
// the rejection message the user sees: unknown league, unknown pet,
// pet no longer available, already claimed, roster full.
func (s *Service) Claim(ctx context.Context, userID, displayName, leagueSlug, petCode string) (*rosterdomain.Entry, error) {
	userID = strings.TrimSpace(userID)
	petCode = strings.TrimSpace(petCode)
	if userID == "" || petCode == "" {
		return nil, rosterdomain.ErrClaimNotFound
	}

	league, err := s.leagues.GetBySlug(ctx, leagueSlug)
	if err != nil {
		return nil, err
	}

	pet, err := s.pets.FindByCode(ctx, s.db, petCode)
	if err != nil {
		return nil, err
	}
	if pet == nil {
		return nil, petdomain.ErrPetNotFound
	}
	if !pet.IsAvailable() {
		return nil, rosterdomain.ErrPetUnavailable
	}

	if err := s.leagues.EnsureUser(ctx, userID, displayName); err != nil {
		return nil, err
	}

	entry := &rosterdomain.Entry{
		ID:        s.genID.Generate(),
		LeagueID:  league.ID,
		UserID:    userID,
		PetCode:   pet.Code,
		ClaimedAt: time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM roster_entries
			 WHERE league_id = ? AND user_id = ? AND pet_code = ?`,
			league.ID, userID, pet.Code,
		).Scan(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return rosterdomain.ErrAlreadyClaimed
		}

		var active int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM roster_entries
			 WHERE league_id = ? AND user_id = ?`,
			league.ID, userID,
		).Scan(&active).Error; err != nil {
			return err
		}
		if int(active) >= s.capacity {
			return rosterdomain.ErrRosterFull
		}

		if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
			// The unique constraint stays the arbiter under races.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return rosterdomain.ErrAlreadyClaimed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("pet claimed",
		zap.String("user_id", userID),
		zap.String("league", league.Slug),
		zap.String("pet_code", pet.Code),
	)
	return entry, nil
}

// Release drops a claim before adoption consumes it.
func (s *Service) Release(ctx context.Context, userID, leagueSlug, petCode string) error {
	userID = strings.TrimSpace(userID)
	petCode = strings.TrimSpace(petCode)
	if userID == "" || petCode == "" {
		return rosterdomain.ErrClaimNotFound
	}

	league, err := s.leagues.GetBySlug(ctx, leagueSlug)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Exec(
		`DELETE FROM roster_entries
		 WHERE league_id = ? AND user_id = ? AND pet_code = ?`,
		league.ID, userID, petCode,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return rosterdomain.ErrClaimNotFound
	}

	s.log.Info("claim released",
		zap.String("user_id", userID),
		zap.String("league", league.Slug),
		zap.String("pet_code", petCode),
	)
	return nil
}

func (s *Service) ActiveForUser(ctx context.Context, userID string, leagueID *snowflake.ID) ([]rosterdomain.ClaimView, error) {
	query := `SELECT r.pet_code,
	                 COALESCE(p.name, '') AS pet_name,
	                 COALESCE(p.status, '') AS pet_status,
	                 l.slug AS league_slug,
	                 r.claimed_at
	          FROM roster_entries r
	          JOIN leagues l ON l.id = r.league_id
	          LEFT JOIN pets p ON p.code = r.pet_code
	          WHERE r.user_id = ?`
	args := []any{strings.TrimSpace(userID)}
	if leagueID != nil {
		query += ` AND r.league_id = ?`
		args = append(args, *leagueID)
	}
	query += ` ORDER BY r.claimed_at DESC, r.id DESC`

	var claims []rosterdomain.ClaimView
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}
