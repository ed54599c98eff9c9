package rank

import "fmt"

// Tier is one band of the ladder. Value is the ordinal used for cross-title
// and cross-player comparison; Name is what players see.
type Tier struct {
	Value int
	Name  string
}

type band struct {
	min  int
	max  int // -1 means open-ended
	tier Tier
}

// Table is an ordered list of contiguous, non-overlapping rating bands. The
// final band is open-ended so every non-negative rating maps to exactly one
// tier.
type Table struct {
	name  string
	bands []band
}

// Progression is the canonical table for post-match reclassification.
// Placement is used only to seed brand-new players and tops out mid-ladder;
// the two are distinct artifacts on purpose and must never be mixed.
var (
	Progression = newTable("progression", []band{
		{0, 99, Tier{0, "Iron"}},
		{100, 299, Tier{1, "Bronze 1"}},
		{300, 499, Tier{2, "Bronze 2"}},
		{500, 699, Tier{3, "Silver 1"}},
		{700, 899, Tier{4, "Silver 2"}},
		{900, 1099, Tier{5, "Gold 1"}},
		{1100, 1299, Tier{6, "Gold 2"}},
		{1300, 1499, Tier{7, "Platinum 1"}},
		{1500, 1799, Tier{8, "Platinum 2"}},
		{1800, 2099, Tier{9, "Diamond 1"}},
		{2100, 2399, Tier{10, "Diamond 2"}},
		{2400, 2599, Tier{11, "Ascendant"}},
		{2600, 2999, Tier{12, "Immortal"}},
		{3000, -1, Tier{13, "Radiant"}},
	})

	Placement = newTable("placement", []band{
		{0, 149, Tier{0, "Iron"}},
		{150, 299, Tier{1, "Bronze 1"}},
		{300, 449, Tier{2, "Bronze 2"}},
		{450, 599, Tier{3, "Silver 1"}},
		{600, 749, Tier{4, "Silver 2"}},
		{750, 899, Tier{5, "Gold 1"}},
		{900, 1049, Tier{6, "Gold 2"}},
		{1050, 1199, Tier{7, "Platinum 1"}},
		{1200, 1349, Tier{8, "Platinum 2"}},
		{1350, 1499, Tier{9, "Diamond 1"}},
		{1500, -1, Tier{10, "Diamond 2"}},
	})
)

func newTable(name string, bands []band) *Table {
	for i := 1; i < len(bands); i++ {
		if bands[i-1].max == -1 || bands[i].min != bands[i-1].max+1 {
			panic(fmt.Sprintf("rank: table %q has a gap or overlap at band %d", name, i))
		}
	}
	if len(bands) == 0 || bands[len(bands)-1].max != -1 {
		panic(fmt.Sprintf("rank: table %q must end with an open-ended band", name))
	}
	return &Table{name: name, bands: bands}
}

func (t *Table) Name() string { return t.name }

// Len returns the number of bands in the table.
func (t *Table) Len() int { return len(t.bands) }

// TierForRating maps a rating to its tier. Ratings below the first band
// (negative input, which callers should already prevent) fall into the
// lowest tier rather than failing.
func (t *Table) TierForRating(rating int) Tier {
	for _, b := range t.bands {
		if rating >= b.min && (b.max == -1 || rating <= b.max) {
			return b.tier
		}
	}
	return t.bands[0].tier
}

// TierByValue returns the tier with the given ordinal.
func (t *Table) TierByValue(value int) (Tier, bool) {
	for _, b := range t.bands {
		if b.tier.Value == value {
			return b.tier, true
		}
	}
	return Tier{}, false
}

// MinRating returns the lower bound of the band holding the given tier
// ordinal. Used to translate a tier back to a representative rating.
func (t *Table) MinRating(value int) (int, bool) {
	for _, b := range t.bands {
		if b.tier.Value == value {
			return b.min, true
		}
	}
	return 0, false
}
