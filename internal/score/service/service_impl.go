package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nooogy1/FantasyPetDiscord/internal/cache"
	scoredomain "github.com/nooogy1/FantasyPetDiscord/internal/score/domain"
)

const breedValueTTL = 5 * time.Minute

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	breedCache *cache.TTLCache[string, int64]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) scoredomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("score.service"),

		genID:      p.GenID,
		breedCache: cache.NewTTLCache[string, int64](),
	}
}

// claimRow is a roster entry joined with the display data awards carry.
type claimRow struct {
	EntryID     snowflake.ID `gorm:"column:entry_id"`
	UserID      string       `gorm:"column:user_id"`
	DisplayName string       `gorm:"column:display_name"`
	LeagueID    snowflake.ID `gorm:"column:league_id"`
	LeagueSlug  string       `gorm:"column:league_slug"`
	LeagueName  string       `gorm:"column:league_name"`
}

func (s *Service) ProcessRemovals(ctx context.Context, removals []scoredomain.Removal) []scoredomain.RemovalOutcome {
	outcomes := make([]scoredomain.RemovalOutcome, 0, len(removals))
	for _, removal := range removals {
		outcome := s.processOne(ctx, removal)
		if outcome.Failed() {
			s.log.Error("award transaction rolled back",
				zap.String("pet_code", removal.PetCode),
				zap.Error(outcome.Err),
			)
		} else if len(outcome.Awards) > 0 {
			s.log.Info("adoption awarded",
				zap.String("pet_code", removal.PetCode),
				zap.Int("awards", len(outcome.Awards)),
				zap.Int64("points_each", outcome.PointsEach),
			)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// processOne awards every claim on one adopted pet inside a single
// transaction. Claims are read at transaction time, not from the
// snapshot, because a draft command can create one while the check
// cycle is mid-flight.
func (s *Service) processOne(ctx context.Context, removal scoredomain.Removal) scoredomain.RemovalOutcome {
	outcome := scoredomain.RemovalOutcome{
		PetCode: removal.PetCode,
		PetName: removal.PetName,
		Breed:   removal.Breed,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claims, err := s.claimsForPet(ctx, tx, removal.PetCode)
		if err != nil {
			return err
		}
		if len(claims) == 0 {
			// Already awarded on a previous cycle, or nobody drafted
			// this pet. Either way a valid no-op.
			return nil
		}

		points := s.BreedPoints(ctx, removal.Breed)
		outcome.PointsEach = points
		now := time.Now().UTC()

		type pair struct {
			league snowflake.ID
			user   string
		}
		touched := make(map[pair]struct{}, len(claims))

		for _, claim := range claims {
			record := scoredomain.ScoreRecord{
				ID:        s.genID.Generate(),
				LeagueID:  claim.LeagueID,
				UserID:    claim.UserID,
				PetCode:   removal.PetCode,
				Points:    points,
				Source:    scoredomain.SourceAdoption,
				Note:      strings.TrimSpace(removal.PetName),
				AwardedAt: now,
			}
			// Savepoint per claim: a constraint violation on one award
			// must not poison its siblings.
			insertErr := tx.Transaction(func(inner *gorm.DB) error {
				return inner.WithContext(ctx).Create(&record).Error
			})
			if insertErr != nil {
				outcome.FailedClaims++
				s.log.Warn("claim award failed",
					zap.String("pet_code", removal.PetCode),
					zap.String("user_id", claim.UserID),
					zap.Int64("league_id", int64(claim.LeagueID)),
					zap.Error(insertErr),
				)
				continue
			}
			outcome.Awards = append(outcome.Awards, scoredomain.Award{
				UserID:          claim.UserID,
				UserDisplayName: claim.DisplayName,
				LeagueID:        claim.LeagueID,
				LeagueSlug:      claim.LeagueSlug,
				LeagueName:      claim.LeagueName,
				Points:          points,
			})
			touched[pair{league: claim.LeagueID, user: claim.UserID}] = struct{}{}
		}

		// Recompute once per unique (league, user) pair, never per claim.
		for key := range touched {
			if err := s.recomputeTotal(ctx, tx, key.league, key.user, now); err != nil {
				return err
			}
		}

		// Claims are consumed once the pet leaves circulation, across
		// all leagues, but only when at least one award landed: a full
		// failure keeps them so the next cycle retries.
		if len(outcome.Awards) > 0 {
			if err := tx.WithContext(ctx).Exec(
				`DELETE FROM roster_entries WHERE pet_code = ?`,
				removal.PetCode,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		outcome.Awards = nil
		outcome.FailedClaims = 0
		outcome.PointsEach = 0
		outcome.Err = err
	}
	return outcome
}

func (s *Service) claimsForPet(ctx context.Context, tx *gorm.DB, petCode string) ([]claimRow, error) {
	var claims []claimRow
	err := tx.WithContext(ctx).Raw(
		`SELECT r.id AS entry_id,
		        r.user_id,
		        COALESCE(u.display_name, '') AS display_name,
		        r.league_id,
		        l.slug AS league_slug,
		        l.name AS league_name
		 FROM roster_entries r
		 JOIN leagues l ON l.id = r.league_id
		 LEFT JOIN users u ON u.id = r.user_id
		 WHERE r.pet_code = ?
		 ORDER BY r.id`,
		petCode,
	).Scan(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// BreedPoints resolves a breed's point value through a short TTL cache.
// Unmapped and non-positive values fall back to the minimum of 1.
func (s *Service) BreedPoints(ctx context.Context, breed string) int64 {
	normalized := strings.ToLower(strings.TrimSpace(breed))
	if normalized == "" {
		return scoredomain.DefaultBreedPoints
	}
	points, err := s.breedCache.GetOrLoad(normalized, breedValueTTL, func() (int64, error) {
		var row struct {
			Points int64 `gorm:"column:points"`
		}
		err := s.db.WithContext(ctx).Raw(
			`SELECT points FROM breed_values WHERE breed = ?`,
			normalized,
		).Scan(&row).Error
		if err != nil {
			return 0, err
		}
		return row.Points, nil
	})
	if err != nil {
		s.log.Warn("breed value lookup failed", zap.String("breed", normalized), zap.Error(err))
		return scoredomain.DefaultBreedPoints
	}
	if points <= 0 {
		return scoredomain.DefaultBreedPoints
	}
	return points
}

func (s *Service) recomputeTotal(ctx context.Context, tx *gorm.DB, leagueID snowflake.ID, userID string, now time.Time) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO leaderboard_totals (league_id, user_id, points, updated_at)
		 SELECT ?, ?, COALESCE(SUM(points), 0), ?
		 FROM score_records
		 WHERE league_id = ? AND user_id = ?
		 ON CONFLICT (league_id, user_id)
		 DO UPDATE SET points = EXCLUDED.points, updated_at = EXCLUDED.updated_at`,
		leagueID,
		userID,
		now,
		leagueID,
		userID,
	).Error
}

func (s *Service) Top(ctx context.Context, leagueID snowflake.ID, limit int) ([]scoredomain.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var rows []scoredomain.LeaderboardRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT t.user_id,
		        COALESCE(u.display_name, '') AS display_name,
		        t.points
		 FROM leaderboard_totals t
		 LEFT JOIN users u ON u.id = t.user_id
		 WHERE t.league_id = ?
		 ORDER BY t.points DESC, t.user_id ASC
		 LIMIT ?`,
		leagueID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (s *Service) HistoryForUser(ctx context.Context, userID string, leagueID *snowflake.ID) ([]scoredomain.HistoryEntry, error) {
	query := `SELECT s.pet_code,
	                 COALESCE(p.name, '') AS pet_name,
	                 l.slug AS league_slug,
	                 s.points,
	                 s.source,
	                 s.awarded_at
	          FROM score_records s
	          JOIN leagues l ON l.id = s.league_id
	          LEFT JOIN pets p ON p.code = s.pet_code
	          WHERE s.user_id = ?`
	args := []any{userID}
	if leagueID != nil {
		query += ` AND s.league_id = ?`
		args = append(args, *leagueID)
	}
	query += ` ORDER BY s.awarded_at DESC, s.id DESC`

	var entries []scoredomain.HistoryEntry
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Rebuild recomputes every leaderboard total from score records inside
// one transaction. Running it twice in a row is a no-op.
func (s *Service) Rebuild(ctx context.Context) (int64, error) {
	var rebuilt int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Exec(`DELETE FROM leaderboard_totals`).Error; err != nil {
			return err
		}
		result := tx.WithContext(ctx).Exec(
			`INSERT INTO leaderboard_totals (league_id, user_id, points, updated_at)
			 SELECT league_id, user_id, SUM(points), ?
			 FROM score_records
			 GROUP BY league_id, user_id`,
			time.Now().UTC(),
		)
		if result.Error != nil {
			return result.Error
		}
		rebuilt = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rebuilt, nil
}

func (s *Service) SweepOrphans(ctx context.Context) (scoredomain.SweepReport, error) {
	var report scoredomain.SweepReport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).Exec(
			`DELETE FROM score_records
			 WHERE league_id NOT IN (SELECT id FROM leagues)`,
		)
		if result.Error != nil {
			return result.Error
		}
		report.RecordsDeleted = result.RowsAffected

		if err := tx.WithContext(ctx).Exec(`DELETE FROM leaderboard_totals`).Error; err != nil {
			return err
		}
		rebuild := tx.WithContext(ctx).Exec(
			`INSERT INTO leaderboard_totals (league_id, user_id, points, updated_at)
			 SELECT league_id, user_id, SUM(points), ?
			 FROM score_records
			 GROUP BY league_id, user_id`,
			time.Now().UTC(),
		)
		if rebuild.Error != nil {
			return rebuild.Error
		}
		report.TotalsRebuilt = rebuild.RowsAffected
		return nil
	})
	if err != nil {
		return scoredomain.SweepReport{}, err
	}
	// Sweeps double as the operator's moment to retune breed values;
	// drop the cache so direct table edits take effect immediately.
	s.breedCache.Flush()
	s.log.Info("maintenance sweep complete",
		zap.Int64("records_deleted", report.RecordsDeleted),
		zap.Int64("totals_rebuilt", report.TotalsRebuilt),
	)
	return report, nil
}
