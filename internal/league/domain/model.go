// Package domain contains persistence models for scoring leagues and
// their members.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// League is a scoring context bound to one announcement channel.
type League struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Slug       string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	ChannelID  string       `gorm:"type:text;not null" json:"channel_id"`
	WebhookURL string       `gorm:"type:text;not null;default:''" json:"-"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (League) TableName() string { return "leagues" }

// User mirrors a chat-platform account. The ID is the platform's own
// identifier, not one of ours.
type User struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	DisplayName string    `gorm:"type:text;not null;default:''" json:"display_name"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
