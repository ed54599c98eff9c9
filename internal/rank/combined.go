package rank

import (
	"ranked-engine/internal/domain"
)

// CombinedRank is the single externally displayed rank derived from a
// player's per-title standings.
type CombinedRank struct {
	Title    domain.GameTitle
	Rating   int
	Tier     int
	TierName string
}

// ResolveCombined derives the displayed rank from the player's per-title
// ratings under their configured resolution mode. Pure: callers must re-run
// it whenever any per-title rating changes.
//
// primary mode returns the primary title's standing verbatim. highest mode
// orders by tier ordinal first and breaks ties on raw rating, so two titles
// reporting the same tier never resolve nondeterministically.
func ResolveCombined(p *domain.Player) CombinedRank {
	if p.ResolveMode == domain.ResolvePrimary && p.PrimaryTitle.Valid() {
		r := p.RatingFor(p.PrimaryTitle)
		return CombinedRank{Title: p.PrimaryTitle, Rating: r.Rating, Tier: r.Tier, TierName: tierNameOrDefault(r)}
	}

	var best CombinedRank
	first := true
	for _, title := range domain.Titles() {
		r := p.RatingFor(title)
		candidate := CombinedRank{Title: title, Rating: r.Rating, Tier: r.Tier, TierName: tierNameOrDefault(r)}
		if first || candidate.Tier > best.Tier ||
			(candidate.Tier == best.Tier && candidate.Rating > best.Rating) {
			best = candidate
			first = false
		}
	}
	return best
}

func tierNameOrDefault(r domain.TitleRating) string {
	if r.TierName != "" {
		return r.TierName
	}
	return Progression.TierForRating(r.Rating).Name
}
