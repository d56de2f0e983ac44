// Package diff classifies pet population changes between two check
// cycles. It is pure: no I/O, no clock, inputs are never mutated.
package diff

import (
	"github.com/nooogy1/FantasyPetDiscord/internal/state"
)

// Result holds the three disjoint change sets of one comparison. A pet
// appears in at most one of them.
type Result struct {
	// Removed pets were available in the previous snapshot and are now
	// marked removed by the intake feed. Pets that vanish from the feed
	// entirely are not removed: disappearance is not adoption.
	Removed []state.PetRecord

	// NewlySeen pets appear in the current population for the first
	// time and are available.
	NewlySeen []state.PetRecord

	// NewlyComplete pets were previously bare stubs (no usable name and
	// no usable photo) and now carry both, are still available, and
	// were never announced as available.
	NewlyComplete []state.PetRecord
}

// Empty reports whether the comparison found no changes.
func (r Result) Empty() bool {
	return len(r.Removed) == 0 && len(r.NewlySeen) == 0 && len(r.NewlyComplete) == 0
}

// Changes compares the previous snapshot population against the current
// one. Records in the result are taken from curr so downstream consumers
// see the latest names and breeds. photoSentinel is the intake feed's
// placeholder image URL, which counts as "no photo".
func Changes(prev, curr []state.PetRecord, photoSentinel string) Result {
	prevByCode := indexByCode(prev)
	currByCode := indexByCode(curr)

	var result Result

	// Removals follow previous-snapshot order so repeated comparisons
	// of the same inputs award in the same order.
	for _, before := range prev {
		if !before.IsAvailable() {
			continue
		}
		now, ok := currByCode[before.Code]
		if !ok {
			continue
		}
		if now.IsRemoved() {
			result.Removed = append(result.Removed, now)
		}
	}

	for _, now := range curr {
		before, known := prevByCode[now.Code]
		if !known {
			if now.IsAvailable() {
				result.NewlySeen = append(result.NewlySeen, now)
			}
			continue
		}
		if !now.IsAvailable() {
			continue
		}
		if before.AvailableAnnounced {
			continue
		}
		if before.HasUsableName() || before.HasUsablePhoto(photoSentinel) {
			continue
		}
		if now.IsComplete(photoSentinel) {
			result.NewlyComplete = append(result.NewlyComplete, now)
		}
	}

	return result
}

func indexByCode(records []state.PetRecord) map[string]state.PetRecord {
	index := make(map[string]state.PetRecord, len(records))
	for _, record := range records {
		index[record.Code] = record
	}
	return index
}
