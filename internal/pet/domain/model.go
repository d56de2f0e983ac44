// Package domain contains persistence models for shelter pets.
package domain

import (
	"strings"
	"time"
)

const (
	StatusAvailable = "available"
	StatusRemoved   = "removed"
)

// Announcement kinds recorded on the pet row once posted.
const (
	AnnouncedAvailable = "available"
	AnnouncedAdopted   = "adopted"
)

// Pet is a shelter animal tracked across check cycles. Rows are written
// by the external intake feed; this service only flips the announced
// flags.
type Pet struct {
	Code               string     `gorm:"primaryKey" json:"code"`
	Name               string     `gorm:"type:text;not null;default:''" json:"name"`
	Species            string     `gorm:"type:text;not null;default:''" json:"species"`
	Breed              string     `gorm:"type:text;not null;default:''" json:"breed"`
	Status             string     `gorm:"type:text;not null;default:available" json:"status"`
	PhotoURL           string     `gorm:"type:text;not null;default:''" json:"photo_url"`
	BroughtInAt        *time.Time `gorm:"" json:"brought_in_at"`
	FirstSeenAt        time.Time  `gorm:"not null" json:"first_seen_at"`
	AvailableAnnounced bool       `gorm:"not null;default:false" json:"-"`
	AdoptedAnnounced   bool       `gorm:"not null;default:false" json:"-"`
	CreatedAt          time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt          time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Pet) TableName() string { return "pets" }

// HasUsableName reports whether the intake feed has assigned a real
// display name yet.
func (p Pet) HasUsableName() bool {
	return strings.TrimSpace(p.Name) != ""
}

// HasUsablePhoto reports whether the pet carries a real photo. The
// intake feed writes sentinel for animals photographed later.
func (p Pet) HasUsablePhoto(sentinel string) bool {
	photo := strings.TrimSpace(p.PhotoURL)
	return photo != "" && photo != sentinel
}

// IsComplete reports whether the pet has both a usable name and photo.
func (p Pet) IsComplete(sentinel string) bool {
	return p.HasUsableName() && p.HasUsablePhoto(sentinel)
}

// IsAvailable reports whether the pet is still up for adoption.
func (p Pet) IsAvailable() bool { return p.Status == StatusAvailable }

// IsRemoved reports whether the shelter has taken the pet off the floor.
func (p Pet) IsRemoved() bool { return p.Status == StatusRemoved }
