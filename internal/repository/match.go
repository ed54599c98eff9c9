package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ranked-engine/internal/domain"
)

type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(db *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: db, logger: logger}
}

func (r *MatchRepository) Create(ctx context.Context, m *domain.Match, stats []domain.MatchPlayerStat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matches (id, title, team_a, team_b, host_id, host_confirmed, confirmed_at,
			status, winner, score_a, score_b, started_at, ended_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, string(m.Title), joinIDs(m.TeamA), joinIDs(m.TeamB), m.HostID,
		m.HostConfirmed, nullTime(m.ConfirmedAt), string(m.Status), string(m.Winner),
		m.ScoreA, m.ScoreB, m.StartedAt, nullTime(m.EndedAt), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", m.ID, err)
	}

	for _, st := range stats {
		if err := insertStat(ctx, tx, st); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *MatchRepository) Get(ctx context.Context, matchID string) (*domain.Match, []domain.MatchPlayerStat, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, team_a, team_b, host_id, host_confirmed, confirmed_at,
			status, winner, score_a, score_b, started_at, ended_at, created_at, updated_at
		FROM matches WHERE id = ?`, matchID)

	var m domain.Match
	var teamA, teamB string
	var confirmedAt, endedAt sql.NullTime
	err := row.Scan(&m.ID, (*string)(&m.Title), &teamA, &teamB, &m.HostID, &m.HostConfirmed,
		&confirmedAt, (*string)(&m.Status), (*string)(&m.Winner), &m.ScoreA, &m.ScoreB,
		&m.StartedAt, &endedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}
	m.TeamA = splitIDs(teamA)
	m.TeamB = splitIDs(teamB)
	if confirmedAt.Valid {
		m.ConfirmedAt = confirmedAt.Time
	}
	if endedAt.Valid {
		m.EndedAt = endedAt.Time
	}

	stats, err := r.loadStats(ctx, matchID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load match stats: %w", err)
	}
	return &m, stats, nil
}

func (r *MatchRepository) loadStats(ctx context.Context, matchID string) ([]domain.MatchPlayerStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT match_id, player_id, team, kills, deaths, assists, mvp,
			rating_before, rating_after, points_earned, created_at
		FROM match_player_stats WHERE match_id = ?`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.MatchPlayerStat
	for rows.Next() {
		var st domain.MatchPlayerStat
		if err := rows.Scan(&st.MatchID, &st.PlayerID, (*string)(&st.Team), &st.Kills, &st.Deaths,
			&st.Assists, &st.MVP, &st.RatingBefore, &st.RatingAfter, &st.PointsEarned, &st.CreatedAt); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// ActiveByTitle finds the in-flight match for a title, if any. At most one
// match per title is ever pending or in-progress.
func (r *MatchRepository) ActiveByTitle(ctx context.Context, title domain.GameTitle) (*domain.Match, []domain.MatchPlayerStat, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM matches
		WHERE title = ? AND status IN (?, ?)
		ORDER BY created_at DESC LIMIT 1`,
		string(title), string(domain.StatusPending), string(domain.StatusInProgress)).Scan(&id)
	if err != nil {
		return nil, nil, err
	}
	return r.Get(ctx, id)
}

// SaveResult persists the completed (or cancelled) match and its final
// stats atomically. A failed write surfaces to the caller; it is never
// treated as success.
func (r *MatchRepository) SaveResult(ctx context.Context, m *domain.Match, stats []domain.MatchPlayerStat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE matches SET host_confirmed = ?, confirmed_at = ?, status = ?, winner = ?,
			score_a = ?, score_b = ?, started_at = ?, ended_at = ?, updated_at = ?
		WHERE id = ?`,
		m.HostConfirmed, nullTime(m.ConfirmedAt), string(m.Status), string(m.Winner),
		m.ScoreA, m.ScoreB, m.StartedAt, nullTime(m.EndedAt), m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", m.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("match %s not found", m.ID)
	}

	for _, st := range stats {
		if _, err := tx.ExecContext(ctx, `
			UPDATE match_player_stats SET kills = ?, deaths = ?, assists = ?, mvp = ?,
				rating_after = ?, points_earned = ?
			WHERE match_id = ? AND player_id = ?`,
			st.Kills, st.Deaths, st.Assists, st.MVP, st.RatingAfter, st.PointsEarned,
			st.MatchID, st.PlayerID); err != nil {
			return fmt.Errorf("failed to update stat for %s: %w", st.PlayerID, err)
		}
	}
	return tx.Commit()
}

func insertStat(ctx context.Context, tx *sql.Tx, st domain.MatchPlayerStat) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO match_player_stats (match_id, player_id, team, kills, deaths, assists, mvp,
			rating_before, rating_after, points_earned, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.MatchID, st.PlayerID, string(st.Team), st.Kills, st.Deaths, st.Assists, st.MVP,
		st.RatingBefore, st.RatingAfter, st.PointsEarned, st.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert stat for %s: %w", st.PlayerID, err)
	}
	return nil
}

func joinIDs(ids []string) string { return strings.Join(ids, ",") }

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
