package rank

import (
	"fmt"
	"strings"

	"ranked-engine/internal/domain"
)

// DefaultPlacementCeiling caps a brand-new player's seeded rating at the top
// of the placement table, mid-ladder on the progression table.
const DefaultPlacementCeiling = 1500

// placementBracket maps one external rank label to an internal rating span.
// eloMin/eloMax bound the external elo-like value the verification
// collaborator reports for that label; the seed interpolates linearly
// between ratingMin and ratingMax within those bounds.
type placementBracket struct {
	eloMin    int
	eloMax    int
	ratingMin int
	ratingMax int
}

// Brackets are title-specific because each title's external API reports a
// different ladder and elo scale.
var placementBrackets = map[domain.GameTitle]map[string]placementBracket{
	domain.TitleValorant: {
		"iron":     {0, 299, 0, 149},
		"bronze":   {300, 599, 150, 449},
		"silver":   {600, 899, 450, 749},
		"gold":     {900, 1199, 750, 1049},
		"platinum": {1200, 1499, 1050, 1349},
		"diamond":  {1500, 1799, 1350, 1599},
		"immortal": {1800, 2399, 1600, 2099},
		"radiant":  {2400, 3000, 2100, 2600},
	},
	domain.TitleCS2: {
		"gray":   {0, 4999, 0, 299},
		"blue":   {5000, 9999, 300, 749},
		"purple": {10000, 14999, 750, 1199},
		"pink":   {15000, 19999, 1200, 1599},
		"red":    {20000, 24999, 1600, 2099},
		"gold":   {25000, 30000, 2100, 2600},
	},
}

// Placed is the outcome of seeding a new player from a verified external rank.
type Placed struct {
	Rating   int
	Tier     Tier
	Capped   bool
	External string
}

// SeedPlacement derives a starting rating from a verified external rank
// label and elo-like value. It interpolates linearly inside the label's
// bracket, clamps the external value to the bracket bounds, and caps the
// result at ceiling so a brand-new player never starts above mid-ladder.
// Classification uses the placement table, never the progression one.
func SeedPlacement(title domain.GameTitle, externalLabel string, externalElo int, ceiling int) (Placed, error) {
	brackets, ok := placementBrackets[title]
	if !ok {
		return Placed{}, fmt.Errorf("no placement brackets for title %q", title)
	}
	key := strings.ToLower(strings.TrimSpace(externalLabel))
	b, ok := brackets[key]
	if !ok {
		return Placed{}, fmt.Errorf("unknown external rank %q for title %q", externalLabel, title)
	}
	if ceiling <= 0 {
		ceiling = DefaultPlacementCeiling
	}

	elo := externalElo
	if elo < b.eloMin {
		elo = b.eloMin
	}
	if elo > b.eloMax {
		elo = b.eloMax
	}

	span := b.eloMax - b.eloMin
	rating := b.ratingMin
	if span > 0 {
		rating += (elo - b.eloMin) * (b.ratingMax - b.ratingMin) / span
	}

	capped := rating > ceiling
	if capped {
		rating = ceiling
	}

	return Placed{
		Rating:   rating,
		Tier:     Placement.TierForRating(rating),
		Capped:   capped,
		External: key,
	}, nil
}
