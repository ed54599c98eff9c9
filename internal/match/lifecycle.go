package match

import (
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"ranked-engine/internal/domain"
)

var (
	ErrInvalidSplit    = errors.New("team split is not a valid partition of the roster")
	ErrNotReportable   = errors.New("match is not accepting a result report")
	ErrNotCancellable  = errors.New("match is not cancellable")
	ErrIncompleteStats = errors.New("result report is missing stats for roster members")
	ErrInvalidWinner   = errors.New("winner must be team A or team B")
	ErrAlreadyStarted  = errors.New("match already started")
)

// Split is the two-team partition produced by the external team-balancing
// collaborator. The lifecycle only validates it, never draws it.
type Split struct {
	TeamA []string
	TeamB []string
}

// ReportedStat is one roster member's raw counters at report time.
type ReportedStat struct {
	Kills   int
	Deaths  int
	Assists int
	MVP     bool
}

// Report is a complete match result: a winner plus counters for every
// roster member. Partial reports are rejected outright.
type Report struct {
	Winner domain.TeamID
	ScoreA int
	ScoreB int
	Stats  map[string]ReportedStat // keyed by player ID
}

// Form builds a pending match from a locked queue's roster and a validated
// team split. ratings must hold every participant's pre-match rating; the
// snapshot it produces is what the rating engine later consumes.
func Form(title domain.GameTitle, roster []domain.QueueEntry, split Split, ratings map[string]int) (*domain.Match, []domain.MatchPlayerStat, error) {
	if err := validateSplit(roster, split); err != nil {
		return nil, nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate match id: %w", err)
	}

	now := time.Now()
	m := &domain.Match{
		ID:        id,
		Title:     title,
		TeamA:     append([]string(nil), split.TeamA...),
		TeamB:     append([]string(nil), split.TeamB...),
		HostID:    roster[0].PlayerID, // longest-waiting player hosts
		Status:    domain.StatusPending,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stats := make([]domain.MatchPlayerStat, 0, len(roster))
	for _, entry := range roster {
		team, _ := m.TeamOf(entry.PlayerID)
		before, ok := ratings[entry.PlayerID]
		if !ok {
			return nil, nil, fmt.Errorf("missing pre-match rating for player %s", entry.PlayerID)
		}
		stats = append(stats, domain.MatchPlayerStat{
			MatchID:      id,
			PlayerID:     entry.PlayerID,
			Team:         team,
			RatingBefore: before,
			CreatedAt:    now,
		})
	}
	return m, stats, nil
}

func validateSplit(roster []domain.QueueEntry, split Split) error {
	if len(split.TeamA) == 0 || len(split.TeamB) == 0 {
		return ErrInvalidSplit
	}
	if len(split.TeamA)+len(split.TeamB) != len(roster) {
		return ErrInvalidSplit
	}

	seen := make(map[string]bool, len(roster))
	for _, entry := range roster {
		seen[entry.PlayerID] = true
	}
	assigned := make(map[string]bool, len(roster))
	for _, id := range append(append([]string(nil), split.TeamA...), split.TeamB...) {
		if !seen[id] || assigned[id] {
			return ErrInvalidSplit
		}
		assigned[id] = true
	}
	return nil
}

// ConfirmHost records the host's confirmation. It gates the start of play
// but never changes team composition.
func ConfirmHost(m *domain.Match) error {
	if m.Status != domain.StatusPending {
		return ErrAlreadyStarted
	}
	if m.HostConfirmed {
		return nil
	}
	m.HostConfirmed = true
	m.ConfirmedAt = time.Now()
	m.UpdatedAt = m.ConfirmedAt
	return nil
}

// Start moves a pending match into play.
func Start(m *domain.Match) error {
	if m.Status != domain.StatusPending {
		return ErrAlreadyStarted
	}
	m.Status = domain.StatusInProgress
	m.UpdatedAt = time.Now()
	return nil
}

// ApplyReport validates a result report against the match and, only if the
// whole report is acceptable, moves the match to completed and fills the
// raw counters into the stat snapshots. All-or-nothing: a rejected report
// mutates neither the match nor the stats.
func ApplyReport(m *domain.Match, stats []domain.MatchPlayerStat, report Report) ([]domain.MatchPlayerStat, error) {
	if m.Status != domain.StatusPending && m.Status != domain.StatusInProgress {
		return nil, ErrNotReportable
	}
	if report.Winner != domain.TeamA && report.Winner != domain.TeamB {
		return nil, ErrInvalidWinner
	}
	for _, id := range m.Roster() {
		if _, ok := report.Stats[id]; !ok {
			return nil, fmt.Errorf("%w: player %s", ErrIncompleteStats, id)
		}
	}

	now := time.Now()
	updated := make([]domain.MatchPlayerStat, len(stats))
	for i, st := range stats {
		raw := report.Stats[st.PlayerID]
		st.Kills = raw.Kills
		st.Deaths = raw.Deaths
		st.Assists = raw.Assists
		st.MVP = raw.MVP
		updated[i] = st
	}

	m.Status = domain.StatusCompleted
	m.Winner = report.Winner
	m.ScoreA = report.ScoreA
	m.ScoreB = report.ScoreB
	m.EndedAt = now
	m.UpdatedAt = now
	return updated, nil
}

// Cancel aborts a match from pending or in-progress. Terminal states are
// untouchable; callers are responsible for releasing the queue lock through
// the ordinary unlock path.
func Cancel(m *domain.Match) error {
	if m.Status.Terminal() {
		return ErrNotCancellable
	}
	now := time.Now()
	m.Status = domain.StatusCancelled
	m.EndedAt = now
	m.UpdatedAt = now
	return nil
}

// TeamAverages returns each team's average pre-match rating from the stat
// snapshots, used by the rating engine's expected-score model.
func TeamAverages(m *domain.Match, stats []domain.MatchPlayerStat) (avgA, avgB float64) {
	var sumA, sumB, nA, nB float64
	for _, st := range stats {
		if st.Team == domain.TeamA {
			sumA += float64(st.RatingBefore)
			nA++
		} else {
			sumB += float64(st.RatingBefore)
			nB++
		}
	}
	if nA > 0 {
		avgA = sumA / nA
	}
	if nB > 0 {
		avgB = sumB / nB
	}
	return avgA, avgB
}
