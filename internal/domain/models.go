package domain

import (
	"time"
)

type GameTitle string

const (
	TitleValorant GameTitle = "valorant"
	TitleCS2      GameTitle = "cs2"
)

// Titles lists every supported game title. Each title has its own queue and
// its own per-player rating; there is no cross-title state.
func Titles() []GameTitle {
	return []GameTitle{TitleValorant, TitleCS2}
}

func (t GameTitle) Valid() bool {
	switch t {
	case TitleValorant, TitleCS2:
		return true
	}
	return false
}

type ResolveMode string

const (
	ResolveHighest ResolveMode = "highest"
	ResolvePrimary ResolveMode = "primary"
)

type TeamID string

const (
	TeamA TeamID = "A"
	TeamB TeamID = "B"
)

type MatchStatus string

const (
	StatusPending    MatchStatus = "pending"
	StatusInProgress MatchStatus = "in-progress"
	StatusCompleted  MatchStatus = "completed"
	StatusCancelled  MatchStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s MatchStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TitleRating is a player's standing in a single title. TierName is a cache
// of the tier table applied to Rating and is recomputed whenever Rating
// changes, never trusted on its own.
type TitleRating struct {
	Title      GameTitle
	Rating     int
	PeakRating int
	Tier       int // ordinal into the progression table
	TierName   string
	UpdatedAt  time.Time
}

type Player struct {
	ID           string
	Name         string
	ResolveMode  ResolveMode
	PrimaryTitle GameTitle
	Ratings      map[GameTitle]TitleRating
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RatingFor returns the player's standing for a title, defaulting to an
// unplaced zero rating when the player has never played the title.
func (p *Player) RatingFor(title GameTitle) TitleRating {
	if r, ok := p.Ratings[title]; ok {
		return r
	}
	return TitleRating{Title: title}
}

type QueueEntry struct {
	PlayerID string
	Title    GameTitle
	JoinedAt time.Time
}

type Match struct {
	ID            string
	Title         GameTitle
	TeamA         []string // player IDs, draw order preserved
	TeamB         []string
	HostID        string
	HostConfirmed bool
	ConfirmedAt   time.Time
	Status        MatchStatus
	Winner        TeamID
	ScoreA        int
	ScoreB        int
	StartedAt     time.Time
	EndedAt       time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Roster returns every participant across both teams.
func (m *Match) Roster() []string {
	roster := make([]string, 0, len(m.TeamA)+len(m.TeamB))
	roster = append(roster, m.TeamA...)
	roster = append(roster, m.TeamB...)
	return roster
}

func (m *Match) TeamOf(playerID string) (TeamID, bool) {
	for _, id := range m.TeamA {
		if id == playerID {
			return TeamA, true
		}
	}
	for _, id := range m.TeamB {
		if id == playerID {
			return TeamB, true
		}
	}
	return "", false
}

// MatchPlayerStat is immutable once the owning match completes.
type MatchPlayerStat struct {
	MatchID      string
	PlayerID     string
	Team         TeamID
	Kills        int
	Deaths       int
	Assists      int
	MVP          bool
	RatingBefore int
	RatingAfter  int
	PointsEarned int
	CreatedAt    time.Time
}

// RankHistoryEntry is an append-only audit record of a rating change. The
// core writes it and never mutates or deletes it.
type RankHistoryEntry struct {
	ID        string // nanoid
	PlayerID  string
	Title     GameTitle
	OldRating int
	NewRating int
	OldTier   string
	NewTier   string
	Reason    string
	MatchID   string
	CreatedAt time.Time
}

const (
	HistoryReasonMatch     = "match-result"
	HistoryReasonPlacement = "placement"
)
