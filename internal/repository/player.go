package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ranked-engine/internal/domain"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(db *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: db, logger: logger}
}

var ErrPlayerNotFound = sql.ErrNoRows

func (r *PlayerRepository) Get(ctx context.Context, playerID string) (*domain.Player, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, resolve_mode, primary_title, created_at, updated_at
		FROM players WHERE id = ?`, playerID)

	var p domain.Player
	if err := row.Scan(&p.ID, &p.Name, (*string)(&p.ResolveMode), (*string)(&p.PrimaryTitle), &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	ratings, err := r.loadRatings(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load title ratings: %w", err)
	}
	p.Ratings = ratings
	return &p, nil
}

func (r *PlayerRepository) loadRatings(ctx context.Context, playerID string) (map[domain.GameTitle]domain.TitleRating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT title, rating, peak_rating, tier, tier_name, updated_at
		FROM title_ratings WHERE player_id = ?`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make(map[domain.GameTitle]domain.TitleRating)
	for rows.Next() {
		var tr domain.TitleRating
		if err := rows.Scan((*string)(&tr.Title), &tr.Rating, &tr.PeakRating, &tr.Tier, &tr.TierName, &tr.UpdatedAt); err != nil {
			return nil, err
		}
		ratings[tr.Title] = tr
	}
	return ratings, rows.Err()
}

func (r *PlayerRepository) Upsert(ctx context.Context, p *domain.Player) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO players (id, name, resolve_mode, primary_title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			resolve_mode = excluded.resolve_mode,
			primary_title = excluded.primary_title,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, string(p.ResolveMode), string(p.PrimaryTitle), now, now)
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", p.ID).Msg("failed to upsert player")
		return fmt.Errorf("failed to upsert player %s: %w", p.ID, err)
	}
	return nil
}

// UpsertTitleRating writes one title standing. Peak rating only moves up.
func (r *PlayerRepository) UpsertTitleRating(ctx context.Context, playerID string, tr domain.TitleRating) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO title_ratings (player_id, title, rating, peak_rating, tier, tier_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(player_id, title) DO UPDATE SET
			rating = excluded.rating,
			peak_rating = MAX(title_ratings.peak_rating, excluded.peak_rating),
			tier = excluded.tier,
			tier_name = excluded.tier_name,
			updated_at = excluded.updated_at`,
		playerID, string(tr.Title), tr.Rating, tr.PeakRating, tr.Tier, tr.TierName, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", playerID).Str("title", string(tr.Title)).Msg("failed to upsert title rating")
		return fmt.Errorf("failed to upsert title rating: %w", err)
	}
	return nil
}

// RatingsFor returns the pre-match ratings of a set of players for one
// title. Players without a standing report rating 0.
func (r *PlayerRepository) RatingsFor(ctx context.Context, title domain.GameTitle, playerIDs []string) (map[string]int, error) {
	ratings := make(map[string]int, len(playerIDs))
	for _, id := range playerIDs {
		var rating int
		err := r.db.QueryRowContext(ctx, `
			SELECT rating FROM title_ratings WHERE player_id = ? AND title = ?`,
			id, string(title)).Scan(&rating)
		if err == sql.ErrNoRows {
			rating = 0
		} else if err != nil {
			return nil, fmt.Errorf("failed to load rating for %s: %w", id, err)
		}
		ratings[id] = rating
	}
	return ratings, nil
}

type LeaderboardRow struct {
	PlayerID string
	Name     string
	Rating   int
	Peak     int
	TierName string
}

func (r *PlayerRepository) Leaderboard(ctx context.Context, title domain.GameTitle, limit int) ([]LeaderboardRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tr.player_id, p.name, tr.rating, tr.peak_rating, tr.tier_name
		FROM title_ratings tr
		JOIN players p ON p.id = tr.player_id
		WHERE tr.title = ?
		ORDER BY tr.rating DESC
		LIMIT ?`, string(title), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var lr LeaderboardRow
		if err := rows.Scan(&lr.PlayerID, &lr.Name, &lr.Rating, &lr.Peak, &lr.TierName); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}
