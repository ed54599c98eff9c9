package rating

import (
	"math"

	"github.com/rs/zerolog"
)

// Fallback deltas applied when a participant's input is malformed. A rating
// computation must always land on some valid new rating; bad data moves it
// by a small constant instead of propagating a numeric error.
const (
	FallbackWinPoints  = 15
	FallbackLossPoints = -8
)

// MVP bonuses are flat and additive, applied after the performance
// multiplier.
const (
	mvpWinBonus  = 6
	mvpLossBonus = 3
)

// Participant is one roster member's view of a completed match.
type Participant struct {
	PlayerID     string
	RatingBefore int
	Won          bool
	Kills        int
	Deaths       int
	Assists      int
	MVP          bool
	TeamAvg      float64 // own team's pre-match average rating
	OpponentAvg  float64
}

// Outcome always carries the before/after pair so callers can render a
// delta with provenance, never a bare final number.
type Outcome struct {
	PlayerID     string
	RatingBefore int
	RatingAfter  int
	PointsEarned int
	Fallback     bool
}

type Engine struct {
	logger zerolog.Logger
}

func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger}
}

// ApplyMatchResult computes one participant's new rating. Each participant
// is independent: everything derives from pre-match snapshots, so callers
// may apply results in any order.
func (e *Engine) ApplyMatchResult(p Participant) Outcome {
	if !validInput(p) {
		points := FallbackLossPoints
		if p.Won {
			points = FallbackWinPoints
		}
		e.logger.Warn().
			Str("player_id", p.PlayerID).
			Bool("won", p.Won).
			Int("kills", p.Kills).
			Int("deaths", p.Deaths).
			Float64("team_avg", p.TeamAvg).
			Float64("opponent_avg", p.OpponentAvg).
			Msg("malformed rating input, applying fallback delta")
		return outcome(p, points, true)
	}

	expected := ExpectedScore(p.TeamAvg, p.OpponentAvg)
	actual := 0.0
	if p.Won {
		actual = 1.0
	}

	k := KFactor(p.RatingBefore)
	base := math.Round(float64(k) * (actual - expected))

	raw := base * performanceMultiplier(p)
	if p.MVP {
		if p.Won {
			raw += mvpWinBonus
		} else {
			raw += mvpLossBonus
		}
	}

	points := int(math.Round(raw * stickyMultiplier(p.RatingBefore, raw >= 0)))
	return outcome(p, points, false)
}

func outcome(p Participant, points int, fallback bool) Outcome {
	after := p.RatingBefore + points
	if after < 0 {
		after = 0
	}
	return Outcome{
		PlayerID:     p.PlayerID,
		RatingBefore: p.RatingBefore,
		RatingAfter:  after,
		PointsEarned: points,
		Fallback:     fallback,
	}
}

// ExpectedScore is the logistic win probability of a team given the two
// teams' average pre-match ratings, clamped to [0, 1].
func ExpectedScore(teamAvg, opponentAvg float64) float64 {
	expected := 1.0 / (1.0 + math.Pow(10, (opponentAvg-teamAvg)/400))
	if expected < 0 {
		return 0
	}
	if expected > 1 {
		return 1
	}
	return expected
}

// KFactor selects volatility by rating band: large at the bottom of the
// ladder, small at the top.
func KFactor(rating int) int {
	switch {
	case rating < 1500:
		return 36
	case rating < 2400:
		return 30
	case rating < 2600:
		return 26
	case rating < 3000:
		return 22
	default:
		return 18
	}
}

// performanceMultiplier rewards individual performance independent of the
// win/loss binary. A K/D of exactly 1.0 is neutral. Winning with a high K/D
// amplifies the gain up to x1.3; losing with a high K/D softens the loss to
// x0.9; losing with a low K/D amplifies it up to x1.2.
func performanceMultiplier(p Participant) float64 {
	kd := float64(p.Kills)
	if p.Deaths > 0 {
		kd = float64(p.Kills) / float64(p.Deaths)
	}

	if p.Won {
		return clamp(1.0+(kd-1.0)*0.15, 0.9, 1.3)
	}
	return clamp(1.0-(kd-1.0)*0.2, 0.9, 1.2)
}

// stickyMultiplier damps movement near the top of the ladder, harder on
// gains than on losses.
func stickyMultiplier(rating int, gain bool) float64 {
	if gain {
		switch {
		case rating < 1500:
			return 1.0
		case rating < 2600:
			return 0.97
		case rating < 3000:
			return 0.9
		default:
			return 0.8
		}
	}
	switch {
	case rating < 2600:
		return 1.0
	case rating < 3000:
		return 0.95
	default:
		return 0.9
	}
}

func validInput(p Participant) bool {
	if p.RatingBefore < 0 || p.Kills < 0 || p.Deaths < 0 || p.Assists < 0 {
		return false
	}
	if math.IsNaN(p.TeamAvg) || math.IsInf(p.TeamAvg, 0) {
		return false
	}
	if math.IsNaN(p.OpponentAvg) || math.IsInf(p.OpponentAvg, 0) {
		return false
	}
	if p.TeamAvg < 0 || p.OpponentAvg < 0 {
		return false
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
