// Package domain contains persistence models and contracts for fantasy
// scoring: score records, leaderboard totals and breed point values.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Score record sources.
const (
	SourceAdoption = "adoption"
	SourceSweep    = "sweep"
)

// DefaultBreedPoints is awarded when a breed has no configured value.
const DefaultBreedPoints int64 = 1

// ScoreRecord is an immutable award event. Rows are only ever inserted;
// the maintenance sweep is the single place allowed to delete orphans.
type ScoreRecord struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	LeagueID  snowflake.ID `gorm:"not null;index" json:"league_id"`
	UserID    string       `gorm:"type:text;not null;index" json:"user_id"`
	PetCode   string       `gorm:"type:text;not null" json:"pet_code"`
	Points    int64        `gorm:"not null" json:"points"`
	Source    string       `gorm:"type:text;not null;default:adoption" json:"source"`
	Note      string       `gorm:"type:text;not null;default:''" json:"note"`
	AwardedAt time.Time    `gorm:"not null" json:"awarded_at"`
}

// TableName sets the database table name.
func (ScoreRecord) TableName() string { return "score_records" }

// LeaderboardTotal materializes one (league, user) running total. It
// always equals the sum of that pair's score records after a completed
// cycle and is fully rebuildable from them.
type LeaderboardTotal struct {
	LeagueID  snowflake.ID `gorm:"primaryKey" json:"league_id"`
	UserID    string       `gorm:"primaryKey;type:text" json:"user_id"`
	Points    int64        `gorm:"not null;default:0" json:"points"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (LeaderboardTotal) TableName() string { return "leaderboard_totals" }

// BreedValue maps a breed to the points one adoption of it is worth.
type BreedValue struct {
	Breed     string    `gorm:"primaryKey;type:text" json:"breed"`
	Points    int64     `gorm:"not null;default:1" json:"points"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (BreedValue) TableName() string { return "breed_values" }
