// Package announce stages outbound announcements in a durable dedupe
// queue and drains them to chat channels under broadcast-window and
// spacing constraints.
package announce

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Announcement kinds. new_pet and completed_pet items are scoped to one
// league channel; adoption items go to the single global lane.
const (
	KindNewPet       = "new_pet"
	KindCompletedPet = "completed_pet"
	KindAdoption     = "adoption"
)

// Kinds lists every announcement kind, for backlog reporting.
var Kinds = []string{KindNewPet, KindCompletedPet, KindAdoption}

// Item is one pending or posted announcement. While pending it carries
// a dedupe key so repeated check cycles cannot queue the same
// announcement twice; posting clears the key.
type Item struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Kind       string            `gorm:"type:text;not null" json:"kind"`
	PetCode    string            `gorm:"type:text;not null" json:"pet_code"`
	ChannelID  string            `gorm:"type:text;not null;default:''" json:"channel_id"`
	LeagueID   *snowflake.ID     `json:"league_id,omitempty"`
	Payload    datatypes.JSONMap `gorm:"type:jsonb" json:"payload"`
	DedupeKey  *string           `gorm:"uniqueIndex" json:"-"`
	Attempts   int               `gorm:"not null;default:0" json:"attempts"`
	EnqueuedAt time.Time         `gorm:"not null" json:"enqueued_at"`
	PostedAt   *time.Time        `json:"posted_at,omitempty"`
	LastError  string            `gorm:"type:text;not null;default:''" json:"-"`
}

// TableName sets the database table name.
func (Item) TableName() string { return "announce_queue" }

// Posted reports whether the item was consumed, with or without an
// actual emission.
func (i Item) Posted() bool { return i.PostedAt != nil }

// Lane identifies one independently drained (kind, channel) stream.
type Lane struct {
	Kind      string `gorm:"column:kind" json:"kind"`
	ChannelID string `gorm:"column:channel_id" json:"channel_id"`
}

// Key is the lane's identifier in the snapshot's timing marks.
func (l Lane) Key() string { return l.Kind + "|" + l.ChannelID }

// AwardLine is one award rendered into an adoption announcement.
type AwardLine struct {
	DisplayName string
	LeagueName  string
	Points      int64
}

// AdoptionPayload captures award details at enqueue time so the
// announcement can be rendered even after claims are long gone.
func AdoptionPayload(petName string, lines []AwardLine) datatypes.JSONMap {
	awards := make([]any, 0, len(lines))
	for _, line := range lines {
		awards = append(awards, map[string]any{
			"display_name": line.DisplayName,
			"league_name":  line.LeagueName,
			"points":       line.Points,
		})
	}
	return datatypes.JSONMap{
		"pet_name": petName,
		"awards":   awards,
	}
}

// awardLines decodes the payload written by AdoptionPayload. Values
// round-trip through JSON, so numbers arrive as float64.
func awardLines(payload datatypes.JSONMap) []AwardLine {
	raw, ok := payload["awards"].([]any)
	if !ok {
		return nil
	}
	lines := make([]AwardLine, 0, len(raw))
	for _, entry := range raw {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		line := AwardLine{}
		if name, ok := fields["display_name"].(string); ok {
			line.DisplayName = name
		}
		if league, ok := fields["league_name"].(string); ok {
			line.LeagueName = league
		}
		switch points := fields["points"].(type) {
		case float64:
			line.Points = int64(points)
		case int64:
			line.Points = points
		}
		lines = append(lines, line)
	}
	return lines
}

func payloadString(payload datatypes.JSONMap, key string) string {
	value, _ := payload[key].(string)
	return value
}
