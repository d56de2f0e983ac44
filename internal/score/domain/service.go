package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Removal is the award ledger's input: one pet the diff engine
// classified as adopted this cycle.
type Removal struct {
	PetCode string
	PetName string
	Breed   string
}

// Award is one successful score grant inside a removal transaction.
type Award struct {
	UserID          string       `json:"user_id"`
	UserDisplayName string       `json:"user_display_name"`
	LeagueID        snowflake.ID `json:"league_id"`
	LeagueSlug      string       `json:"league_slug"`
	LeagueName      string       `json:"league_name"`
	Points          int64        `json:"points"`
}

// RemovalOutcome reports one pet's award transaction. Err is non-nil
// only when the whole per-pet transaction rolled back; per-claim
// failures are counted in FailedClaims without aborting siblings.
type RemovalOutcome struct {
	PetCode      string
	PetName      string
	Breed        string
	PointsEach   int64
	Awards       []Award
	FailedClaims int
	Err          error
}

// Failed reports whether the per-pet transaction rolled back entirely.
func (o RemovalOutcome) Failed() bool { return o.Err != nil }

// PointsTotal sums the points actually written for this pet.
func (o RemovalOutcome) PointsTotal() int64 {
	var total int64
	for _, award := range o.Awards {
		total += award.Points
	}
	return total
}

// LeaderboardRow is one ranked leaderboard entry.
type LeaderboardRow struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Points      int64  `json:"points"`
}

// HistoryEntry is one award in a user's scoring history.
type HistoryEntry struct {
	PetCode    string    `json:"pet_code"`
	PetName    string    `json:"pet_name"`
	LeagueSlug string    `json:"league_slug"`
	Points     int64     `json:"points"`
	Source     string    `json:"source"`
	AwardedAt  time.Time `json:"awarded_at"`
}

// SweepReport summarizes one maintenance sweep.
type SweepReport struct {
	RecordsDeleted int64 `json:"records_deleted"`
	TotalsRebuilt  int64 `json:"totals_rebuilt"`
}

// Service is the award ledger plus its read side.
type Service interface {
	// ProcessRemovals runs one atomic award transaction per pet,
	// serialized in input order. A pet's failure never rolls back a
	// sibling's committed awards, and reprocessing an already-awarded
	// pet is a no-op because its claims were consumed.
	ProcessRemovals(ctx context.Context, removals []Removal) []RemovalOutcome

	// BreedPoints resolves the configured value for a breed, falling
	// back to DefaultBreedPoints when unmapped.
	BreedPoints(ctx context.Context, breed string) int64

	Top(ctx context.Context, leagueID snowflake.ID, limit int) ([]LeaderboardRow, error)
	HistoryForUser(ctx context.Context, userID string, leagueID *snowflake.ID) ([]HistoryEntry, error)

	// Rebuild recomputes every leaderboard total from score records.
	Rebuild(ctx context.Context) (int64, error)

	// SweepOrphans deletes score records whose league no longer exists
	// and rebuilds the leaderboard.
	SweepOrphans(ctx context.Context) (SweepReport, error)
}
