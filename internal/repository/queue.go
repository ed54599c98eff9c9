package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"ranked-engine/internal/domain"
)

// QueueRepository is the durable mirror of the per-title waiting lists. The
// in-memory queue store is the working view; every write here is
// write-through from it.
type QueueRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewQueueRepository(db *sql.DB, logger zerolog.Logger) *QueueRepository {
	return &QueueRepository{db: db, logger: logger}
}

func (r *QueueRepository) Load(ctx context.Context, title domain.GameTitle) ([]domain.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT player_id, title, joined_at
		FROM queue_entries WHERE title = ?
		ORDER BY joined_at ASC`, string(title))
	if err != nil {
		return nil, fmt.Errorf("failed to load queue %s: %w", title, err)
	}
	defer rows.Close()

	var entries []domain.QueueEntry
	for rows.Next() {
		var e domain.QueueEntry
		if err := rows.Scan(&e.PlayerID, (*string)(&e.Title), &e.JoinedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *QueueRepository) SaveJoin(ctx context.Context, entry domain.QueueEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO queue_entries (title, player_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT(title, player_id) DO NOTHING`,
		string(entry.Title), entry.PlayerID, entry.JoinedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", entry.PlayerID).Str("title", string(entry.Title)).Msg("failed to persist queue join")
		return fmt.Errorf("failed to persist queue join: %w", err)
	}
	return nil
}

func (r *QueueRepository) SaveLeave(ctx context.Context, title domain.GameTitle, playerID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM queue_entries WHERE title = ? AND player_id = ?`,
		string(title), playerID)
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", playerID).Str("title", string(title)).Msg("failed to persist queue leave")
		return fmt.Errorf("failed to persist queue leave: %w", err)
	}
	return nil
}

func (r *QueueRepository) SaveClear(ctx context.Context, title domain.GameTitle) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM queue_entries WHERE title = ?`, string(title))
	if err != nil {
		r.logger.Error().Err(err).Str("title", string(title)).Msg("failed to persist queue clear")
		return fmt.Errorf("failed to persist queue clear: %w", err)
	}
	return nil
}
