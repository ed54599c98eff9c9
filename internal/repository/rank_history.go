package repository

import (
	"context"
	"database/sql"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"ranked-engine/internal/domain"
)

// RankHistoryRepository holds the append-only audit trail of rating
// changes. Rows are never updated or deleted.
type RankHistoryRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRankHistoryRepository(db *sql.DB, logger zerolog.Logger) *RankHistoryRepository {
	return &RankHistoryRepository{db: db, logger: logger}
}

func (r *RankHistoryRepository) Append(ctx context.Context, entry domain.RankHistoryEntry) error {
	id := entry.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rank_history (id, player_id, title, old_rating, new_rating, old_tier, new_tier, reason, match_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, entry.PlayerID, string(entry.Title), entry.OldRating, entry.NewRating,
		entry.OldTier, entry.NewTier, entry.Reason, entry.MatchID, entry.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", entry.PlayerID).Msg("failed to append rank history")
		return fmt.Errorf("failed to append rank history: %w", err)
	}
	return nil
}

func (r *RankHistoryRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]domain.RankHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, player_id, title, old_rating, new_rating, old_tier, new_tier, reason, match_id, created_at
		FROM rank_history WHERE player_id = ?
		ORDER BY created_at DESC LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.RankHistoryEntry
	for rows.Next() {
		var e domain.RankHistoryEntry
		if err := rows.Scan(&e.ID, &e.PlayerID, (*string)(&e.Title), &e.OldRating, &e.NewRating,
			&e.OldTier, &e.NewTier, &e.Reason, &e.MatchID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
