package rating

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testEngine() *Engine {
	return NewEngine(zerolog.Nop())
}

func evenParticipant(won bool) Participant {
	// Rating 1600 sits in the K=30 band; identical team averages give an
	// expected score of exactly 0.5, and kills == deaths keeps the
	// performance multiplier neutral.
	return Participant{
		PlayerID:     "p1",
		RatingBefore: 1600,
		Won:          won,
		Kills:        10,
		Deaths:       10,
		Assists:      4,
		TeamAvg:      1600,
		OpponentAvg:  1600,
	}
}

func TestSignSymmetryAtMidpoint(t *testing.T) {
	win := testEngine().ApplyMatchResult(evenParticipant(true))
	assert.Equal(t, 15, win.PointsEarned)
	assert.Equal(t, 1615, win.RatingAfter)
	assert.False(t, win.Fallback)

	loss := testEngine().ApplyMatchResult(evenParticipant(false))
	assert.Equal(t, -15, loss.PointsEarned)
	assert.Equal(t, 1585, loss.RatingAfter)
}

func TestExpectedScore(t *testing.T) {
	assert.InDelta(t, 0.5, ExpectedScore(1500, 1500), 1e-9)
	assert.InDelta(t, 0.240253, ExpectedScore(1500, 1700), 1e-5)
	assert.InDelta(t, 0.759746, ExpectedScore(1700, 1500), 1e-5)
}

func TestBasePointsRounding(t *testing.T) {
	// Team A avg 1500 vs team B avg 1700, team A wins: expected ~0.24, so
	// base points at K=30 round to 23.
	base := math.Round(float64(30) * (1 - ExpectedScore(1500, 1700)))
	assert.Equal(t, 23.0, base)
}

func TestKFactorBands(t *testing.T) {
	tests := []struct {
		rating int
		k      int
	}{
		{0, 36},
		{1499, 36},
		{1500, 30},
		{2399, 30},
		{2400, 26},
		{2599, 26},
		{2600, 22},
		{2999, 22},
		{3000, 18},
		{4000, 18},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.k, KFactor(tt.rating), "rating %d", tt.rating)
	}
}

func TestPerformanceMultiplierNeutralAtEvenKD(t *testing.T) {
	p := evenParticipant(true)
	assert.InDelta(t, 1.0, performanceMultiplier(p), 1e-9)
}

func TestPerformanceMultiplierAsymmetry(t *testing.T) {
	highKDWin := Participant{Won: true, Kills: 30, Deaths: 5}
	assert.InDelta(t, 1.3, performanceMultiplier(highKDWin), 1e-9)

	highKDLoss := Participant{Won: false, Kills: 30, Deaths: 5}
	assert.InDelta(t, 0.9, performanceMultiplier(highKDLoss), 1e-9)

	lowKDLoss := Participant{Won: false, Kills: 0, Deaths: 12}
	assert.InDelta(t, 1.2, performanceMultiplier(lowKDLoss), 1e-9)
}

func TestZeroDeathsUsesKillsAsKD(t *testing.T) {
	p := Participant{Won: true, Kills: 1, Deaths: 0}
	assert.InDelta(t, 1.0, performanceMultiplier(p), 1e-9)

	p.Kills = 20
	assert.InDelta(t, 1.3, performanceMultiplier(p), 1e-9)
}

func TestMVPBonusLargerOnWin(t *testing.T) {
	base := Participant{
		PlayerID:     "p1",
		RatingBefore: 1000,
		Kills:        8,
		Deaths:       8,
		TeamAvg:      1000,
		OpponentAvg:  1000,
		MVP:          true,
	}

	base.Won = true
	win := testEngine().ApplyMatchResult(base)
	// K=36, expected 0.5 -> base 18, +6 MVP, sticky 1.0 below 1500.
	assert.Equal(t, 24, win.PointsEarned)

	base.Won = false
	loss := testEngine().ApplyMatchResult(base)
	assert.Equal(t, -15, loss.PointsEarned)
}

func TestStickyMultiplierStrictlyDecreasesForGains(t *testing.T) {
	boundaries := []int{1500, 2600, 3000}
	for _, b := range boundaries {
		below := stickyMultiplier(b-1, true)
		at := stickyMultiplier(b, true)
		assert.Less(t, at, below, "gain multiplier must drop crossing %d", b)
	}
	assert.Equal(t, 0.8, stickyMultiplier(3500, true))
}

func TestStickyMultiplierSoftensLossesLess(t *testing.T) {
	for _, r := range []int{0, 1500, 2600, 3000, 4000} {
		assert.GreaterOrEqual(t, stickyMultiplier(r, false), stickyMultiplier(r, true))
	}
	assert.Equal(t, 0.9, stickyMultiplier(3500, false))
}

func TestRatingNeverNegative(t *testing.T) {
	p := Participant{
		PlayerID:     "p1",
		RatingBefore: 3,
		Won:          false,
		Kills:        0,
		Deaths:       15,
		TeamAvg:      100,
		OpponentAvg:  100,
	}
	out := testEngine().ApplyMatchResult(p)
	assert.Negative(t, out.PointsEarned)
	assert.Equal(t, 0, out.RatingAfter)
}

func TestMalformedInputFallsBackToFixedDeltas(t *testing.T) {
	bad := Participant{PlayerID: "p1", RatingBefore: 1200, Won: true, Kills: -3, Deaths: 2, TeamAvg: 1200, OpponentAvg: 1200}
	out := testEngine().ApplyMatchResult(bad)
	assert.True(t, out.Fallback)
	assert.Equal(t, FallbackWinPoints, out.PointsEarned)
	assert.Equal(t, 1215, out.RatingAfter)

	bad.Won = false
	bad.Kills = 3
	bad.TeamAvg = math.NaN()
	out = testEngine().ApplyMatchResult(bad)
	assert.True(t, out.Fallback)
	assert.Equal(t, FallbackLossPoints, out.PointsEarned)
}

func TestOutcomeCarriesProvenance(t *testing.T) {
	out := testEngine().ApplyMatchResult(evenParticipant(true))
	assert.Equal(t, out.RatingBefore+out.PointsEarned, out.RatingAfter)
}
