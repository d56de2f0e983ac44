package announce

import (
	"fmt"
	"strings"

	petdomain "github.com/nooogy1/FantasyPetDiscord/internal/pet/domain"
)

// composeMessage renders the plain-text body for one announcement.
// Rich embed formatting belongs to the chat front-end; the core only
// guarantees the facts are present.
func composeMessage(item *Item, pet *petdomain.Pet) string {
	switch item.Kind {
	case KindNewPet:
		return composeNewPet(item, pet)
	case KindCompletedPet:
		return composeCompletedPet(item, pet)
	case KindAdoption:
		return composeAdoption(item, pet)
	default:
		return ""
	}
}

func composeNewPet(item *Item, pet *petdomain.Pet) string {
	label := petLabel(pet.Name, item.PetCode)
	var b strings.Builder
	fmt.Fprintf(&b, "New arrival: %s", label)
	if breed := strings.TrimSpace(pet.Breed); breed != "" {
		fmt.Fprintf(&b, " (%s)", breed)
	}
	fmt.Fprintf(&b, " is up for adoption. Draft with /claim %s", item.PetCode)
	return b.String()
}

func composeCompletedPet(item *Item, pet *petdomain.Pet) string {
	label := petLabel(pet.Name, item.PetCode)
	var b strings.Builder
	fmt.Fprintf(&b, "%s now has a name and photo", label)
	if breed := strings.TrimSpace(pet.Breed); breed != "" {
		fmt.Fprintf(&b, " (%s)", breed)
	}
	b.WriteString(".")
	if photo := strings.TrimSpace(pet.PhotoURL); photo != "" {
		b.WriteString("\n")
		b.WriteString(photo)
	}
	return b.String()
}

func composeAdoption(item *Item, pet *petdomain.Pet) string {
	name := payloadString(item.Payload, "pet_name")
	if name == "" && pet != nil {
		name = pet.Name
	}
	label := petLabel(name, item.PetCode)

	var b strings.Builder
	fmt.Fprintf(&b, "%s found a home!", label)

	lines := awardLines(item.Payload)
	if len(lines) == 0 {
		b.WriteString(" No claims were staked on them.")
		return b.String()
	}
	for _, line := range lines {
		holder := line.DisplayName
		if holder == "" {
			holder = "someone"
		}
		fmt.Fprintf(&b, "\n%s scores %d point", holder, line.Points)
		if line.Points != 1 {
			b.WriteString("s")
		}
		if line.LeagueName != "" {
			fmt.Fprintf(&b, " in %s", line.LeagueName)
		}
	}
	return b.String()
}

func petLabel(name, code string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s (%s)", name, code)
}
