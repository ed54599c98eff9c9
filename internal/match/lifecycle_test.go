package match

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ranked-engine/internal/domain"
)

func testRoster(n int) ([]domain.QueueEntry, map[string]int) {
	roster := make([]domain.QueueEntry, n)
	ratings := make(map[string]int, n)
	base := time.Now()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p%d", i)
		roster[i] = domain.QueueEntry{PlayerID: id, Title: domain.TitleValorant, JoinedAt: base.Add(time.Duration(i) * time.Second)}
		ratings[id] = 1000 + i*100
	}
	return roster, ratings
}

func evenSplit(roster []domain.QueueEntry) Split {
	var s Split
	for i, e := range roster {
		if i%2 == 0 {
			s.TeamA = append(s.TeamA, e.PlayerID)
		} else {
			s.TeamB = append(s.TeamB, e.PlayerID)
		}
	}
	return s
}

func formTestMatch(t *testing.T) (*domain.Match, []domain.MatchPlayerStat) {
	t.Helper()
	roster, ratings := testRoster(10)
	m, stats, err := Form(domain.TitleValorant, roster, evenSplit(roster), ratings)
	require.NoError(t, err)
	return m, stats
}

func fullReport(m *domain.Match, winner domain.TeamID) Report {
	stats := make(map[string]ReportedStat, len(m.Roster()))
	for _, id := range m.Roster() {
		stats[id] = ReportedStat{Kills: 10, Deaths: 10, Assists: 3}
	}
	return Report{Winner: winner, ScoreA: 13, ScoreB: 7, Stats: stats}
}

func TestFormSnapshotsRatings(t *testing.T) {
	m, stats := formTestMatch(t)

	assert.Equal(t, domain.StatusPending, m.Status)
	assert.Len(t, m.TeamA, 5)
	assert.Len(t, m.TeamB, 5)
	assert.Equal(t, "p0", m.HostID, "longest-waiting player hosts")

	require.Len(t, stats, 10)
	for _, st := range stats {
		assert.NotZero(t, st.RatingBefore)
		team, ok := m.TeamOf(st.PlayerID)
		require.True(t, ok)
		assert.Equal(t, team, st.Team)
	}
}

func TestFormRejectsBadSplits(t *testing.T) {
	roster, ratings := testRoster(10)

	// empty team
	_, _, err := Form(domain.TitleValorant, roster, Split{TeamA: rosterIDs(roster), TeamB: nil}, ratings)
	assert.ErrorIs(t, err, ErrInvalidSplit)

	// player not in roster
	bad := evenSplit(roster)
	bad.TeamA[0] = "stranger"
	_, _, err = Form(domain.TitleValorant, roster, bad, ratings)
	assert.ErrorIs(t, err, ErrInvalidSplit)

	// duplicate assignment
	dup := evenSplit(roster)
	dup.TeamB[0] = dup.TeamA[0]
	_, _, err = Form(domain.TitleValorant, roster, dup, ratings)
	assert.ErrorIs(t, err, ErrInvalidSplit)

	// incomplete partition
	short := evenSplit(roster)
	short.TeamB = short.TeamB[:4]
	_, _, err = Form(domain.TitleValorant, roster, short, ratings)
	assert.ErrorIs(t, err, ErrInvalidSplit)
}

func TestConfirmHostDoesNotChangeTeams(t *testing.T) {
	m, _ := formTestMatch(t)
	teamA := append([]string(nil), m.TeamA...)

	require.NoError(t, ConfirmHost(m))
	assert.True(t, m.HostConfirmed)
	assert.Equal(t, teamA, m.TeamA)

	// confirming twice is a no-op
	require.NoError(t, ConfirmHost(m))
}

func TestStartTransitions(t *testing.T) {
	m, _ := formTestMatch(t)
	require.NoError(t, Start(m))
	assert.Equal(t, domain.StatusInProgress, m.Status)

	assert.ErrorIs(t, Start(m), ErrAlreadyStarted)
}

func TestApplyReportCompletesMatch(t *testing.T) {
	m, stats := formTestMatch(t)
	require.NoError(t, Start(m))

	updated, err := ApplyReport(m, stats, fullReport(m, domain.TeamA))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, m.Status)
	assert.Equal(t, domain.TeamA, m.Winner)
	assert.False(t, m.EndedAt.IsZero())
	for _, st := range updated {
		assert.Equal(t, 10, st.Kills)
	}
}

func TestApplyReportFromPending(t *testing.T) {
	m, stats := formTestMatch(t)
	_, err := ApplyReport(m, stats, fullReport(m, domain.TeamB))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, m.Status)
}

func TestApplyReportRejectsTerminalStates(t *testing.T) {
	m, stats := formTestMatch(t)
	_, err := ApplyReport(m, stats, fullReport(m, domain.TeamA))
	require.NoError(t, err)

	_, err = ApplyReport(m, stats, fullReport(m, domain.TeamB))
	assert.ErrorIs(t, err, ErrNotReportable)
	assert.Equal(t, domain.TeamA, m.Winner)
}

func TestApplyReportRejectsIncompleteStats(t *testing.T) {
	m, stats := formTestMatch(t)

	report := fullReport(m, domain.TeamA)
	delete(report.Stats, "p3")

	_, err := ApplyReport(m, stats, report)
	assert.ErrorIs(t, err, ErrIncompleteStats)

	// nothing applied
	assert.Equal(t, domain.StatusPending, m.Status)
	for _, st := range stats {
		assert.Zero(t, st.Kills)
	}
}

func TestApplyReportRejectsBadWinner(t *testing.T) {
	m, stats := formTestMatch(t)
	report := fullReport(m, domain.TeamID("C"))
	_, err := ApplyReport(m, stats, report)
	assert.ErrorIs(t, err, ErrInvalidWinner)
	assert.Equal(t, domain.StatusPending, m.Status)
}

func TestCancel(t *testing.T) {
	m, _ := formTestMatch(t)
	require.NoError(t, Cancel(m))
	assert.Equal(t, domain.StatusCancelled, m.Status)

	assert.ErrorIs(t, Cancel(m), ErrNotCancellable)
}

func TestCancelFromInProgress(t *testing.T) {
	m, _ := formTestMatch(t)
	require.NoError(t, Start(m))
	require.NoError(t, Cancel(m))
	assert.Equal(t, domain.StatusCancelled, m.Status)
}

func TestCancelRejectsCompleted(t *testing.T) {
	m, stats := formTestMatch(t)
	_, err := ApplyReport(m, stats, fullReport(m, domain.TeamA))
	require.NoError(t, err)
	assert.ErrorIs(t, Cancel(m), ErrNotCancellable)
}

func TestTeamAverages(t *testing.T) {
	roster, ratings := testRoster(4)
	split := Split{
		TeamA: []string{"p0", "p1"}, // 1000, 1100
		TeamB: []string{"p2", "p3"}, // 1200, 1300
	}
	m, stats, err := Form(domain.TitleValorant, roster, split, ratings)
	require.NoError(t, err)

	avgA, avgB := TeamAverages(m, stats)
	assert.InDelta(t, 1050, avgA, 1e-9)
	assert.InDelta(t, 1250, avgB, 1e-9)
}

func rosterIDs(entries []domain.QueueEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.PlayerID
	}
	return ids
}
