// Package state persists the bot's snapshot: the last-known pet
// population, lifetime counters and per-lane emission marks. The
// snapshot is what lets a restarted process pick up diffing where the
// previous one stopped instead of re-announcing the whole shelter.
package state

import (
	"strings"
	"time"

	petdomain "github.com/nooogy1/FantasyPetDiscord/internal/pet/domain"
)

// PetRecord is the slice of a pet row the diff engine compares across
// check cycles. It is stored as JSON inside the snapshot blob, so field
// renames are schema changes.
type PetRecord struct {
	Code               string     `json:"code"`
	Name               string     `json:"name"`
	Species            string     `json:"species"`
	Breed              string     `json:"breed"`
	Status             string     `json:"status"`
	PhotoURL           string     `json:"photo_url"`
	BroughtInAt        *time.Time `json:"brought_in_at,omitempty"`
	FirstSeenAt        time.Time  `json:"first_seen_at"`
	AvailableAnnounced bool       `json:"available_announced"`
}

// FromPet trims a live pet row down to the fields the diff engine needs.
func FromPet(p petdomain.Pet) PetRecord {
	return PetRecord{
		Code:               p.Code,
		Name:               p.Name,
		Species:            p.Species,
		Breed:              p.Breed,
		Status:             p.Status,
		PhotoURL:           p.PhotoURL,
		BroughtInAt:        p.BroughtInAt,
		FirstSeenAt:        p.FirstSeenAt,
		AvailableAnnounced: p.AvailableAnnounced,
	}
}

// IsAvailable reports whether the record was up for adoption.
func (r PetRecord) IsAvailable() bool { return r.Status == petdomain.StatusAvailable }

// IsRemoved reports whether the record left the shelter feed.
func (r PetRecord) IsRemoved() bool { return r.Status == petdomain.StatusRemoved }

// HasUsableName reports whether the intake feed assigned a real name.
func (r PetRecord) HasUsableName() bool {
	return strings.TrimSpace(r.Name) != ""
}

// HasUsablePhoto reports whether the record carries a real photo. The
// feed's sentinel placeholder counts as no photo.
func (r PetRecord) HasUsablePhoto(sentinel string) bool {
	photo := strings.TrimSpace(r.PhotoURL)
	return photo != "" && photo != sentinel
}

// IsComplete reports whether the record has both a usable name and photo.
func (r PetRecord) IsComplete(sentinel string) bool {
	return r.HasUsableName() && r.HasUsablePhoto(sentinel)
}

// Counters accumulate across the life of the deployment, not a single
// process. They are also used as deltas, so every field must add.
type Counters struct {
	TotalChecks        int64 `json:"total_checks"`
	TotalNewPets       int64 `json:"total_new_pets"`
	TotalAdoptions     int64 `json:"total_adoptions"`
	TotalPointsAwarded int64 `json:"total_points_awarded"`
}

func (c *Counters) add(delta Counters) {
	c.TotalChecks += delta.TotalChecks
	c.TotalNewPets += delta.TotalNewPets
	c.TotalAdoptions += delta.TotalAdoptions
	c.TotalPointsAwarded += delta.TotalPointsAwarded
}

// Snapshot is the unit of persistence: one JSON blob in the bot_state
// row, written whole on every save.
type Snapshot struct {
	Pets      []PetRecord          `json:"pets"`
	Counters  Counters             `json:"counters"`
	LaneMarks map[string]time.Time `json:"lane_marks"`
}

// IsFirstRun reports whether the process has never completed a check
// cycle. The checker seeds the snapshot instead of classifying changes
// on the first run.
func (s Snapshot) IsFirstRun() bool {
	return len(s.Pets) == 0 && s.Counters.TotalChecks == 0
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Pets:      make([]PetRecord, len(s.Pets)),
		Counters:  s.Counters,
		LaneMarks: make(map[string]time.Time, len(s.LaneMarks)),
	}
	copy(out.Pets, s.Pets)
	for lane, mark := range s.LaneMarks {
		out.LaneMarks[lane] = mark
	}
	return out
}
