// Package domain contains the claim model and contract. A claim stakes
// a user's fantasy position on a pet within one league and is consumed
// when the pet is adopted.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrPetUnavailable = errors.New("pet_unavailable")
	ErrAlreadyClaimed = errors.New("already_claimed")
	ErrRosterFull     = errors.New("roster_full")
	ErrClaimNotFound  = errors.New("claim_not_found")
)

// Entry is one claim. The (league_id, user_id, pet_code) uniqueness is
// enforced by the storage layer, which stays the arbiter when a draft
// command races a check cycle.
type Entry struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	LeagueID  snowflake.ID `gorm:"not null" json:"league_id"`
	UserID    string       `gorm:"type:text;not null" json:"user_id"`
	PetCode   string       `gorm:"type:text;not null" json:"pet_code"`
	ClaimedAt time.Time    `gorm:"not null" json:"claimed_at"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "roster_entries" }

// ClaimView is a claim joined with the display data status commands
// show.
type ClaimView struct {
	PetCode    string    `json:"pet_code"`
	PetName    string    `json:"pet_name"`
	PetStatus  string    `json:"pet_status"`
	LeagueSlug string    `json:"league_slug"`
	ClaimedAt  time.Time `json:"claimed_at"`
}

// Service manages claims. Every validation failure is a typed error the
// command front-end can translate into a specific rejection message.
type Service interface {
	Claim(ctx context.Context, userID, displayName, leagueSlug, petCode string) (*Entry, error)
	Release(ctx context.Context, userID, leagueSlug, petCode string) error
	ActiveForUser(ctx context.Context, userID string, leagueID *snowflake.ID) ([]ClaimView, error)
}
