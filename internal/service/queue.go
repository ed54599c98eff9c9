package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/metrics"
	"ranked-engine/internal/queue"
	"ranked-engine/internal/repository"
)

// QueueResult is what queue operations hand back to the bot or dashboard: a
// success flag plus a short human-readable message.
type QueueResult struct {
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
	Size        int    `json:"size"`
	SlotsNeeded int    `json:"slots_needed"`
	Full        bool   `json:"full"`
}

type QueueService struct {
	registry *queue.Registry
	repo     *repository.QueueRepository
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewQueueService(registry *queue.Registry, repo *repository.QueueRepository, m *metrics.Metrics, logger zerolog.Logger) *QueueService {
	return &QueueService{registry: registry, repo: repo, metrics: m, logger: logger}
}

// Sync replaces each in-memory queue with a fresh read of the durable
// mirror. Called once at startup so a restart does not drop waiting players.
func (s *QueueService) Sync(ctx context.Context) error {
	for _, title := range domain.Titles() {
		store, _ := s.registry.For(title)
		entries, err := s.repo.Load(ctx, title)
		if err != nil {
			return fmt.Errorf("failed to sync queue %s: %w", title, err)
		}
		store.Replace(entries)
		s.logger.Info().Str("title", string(title)).Int("size", len(entries)).Msg("queue synced from storage")
	}
	return nil
}

// Join adds the player to a title's queue and writes through to storage. A
// failed write rolls the in-memory join back and surfaces the failure;
// it is never treated as success.
func (s *QueueService) Join(ctx context.Context, title domain.GameTitle, playerID string) (QueueResult, error) {
	store, ok := s.registry.For(title)
	if !ok {
		return QueueResult{Message: "unknown game title"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	status, slotsNeeded := store.Join(playerID)
	if status != queue.Joined {
		return QueueResult{
			Message:     status.String(),
			Size:        store.Size(),
			SlotsNeeded: slotsNeeded,
			Full:        store.IsFull(),
		}, nil
	}

	entry := domain.QueueEntry{PlayerID: playerID, Title: title}
	for _, e := range store.Snapshot() {
		if e.PlayerID == playerID {
			entry = e
			break
		}
	}
	if err := s.repo.SaveJoin(ctx, entry); err != nil {
		store.Leave(playerID)
		return QueueResult{Message: "failed to persist join"}, err
	}

	s.metrics.QueueJoins.WithLabelValues(string(title)).Inc()
	s.logger.Info().Str("title", string(title)).Str("player_id", playerID).Int("slots_needed", slotsNeeded).Msg("player queued")
	return QueueResult{
		OK:          true,
		Message:     "joined",
		Size:        store.Size(),
		SlotsNeeded: slotsNeeded,
		Full:        store.IsFull(),
	}, nil
}

// Leave removes the player and writes through to storage. A failed write
// restores the in-memory entry so the two views never diverge.
func (s *QueueService) Leave(ctx context.Context, title domain.GameTitle, playerID string) (QueueResult, error) {
	store, ok := s.registry.For(title)
	if !ok {
		return QueueResult{Message: "unknown game title"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	before := store.Snapshot()
	status := store.Leave(playerID)
	if status != queue.Left {
		return QueueResult{Message: status.String(), Size: store.Size()}, nil
	}

	if err := s.repo.SaveLeave(ctx, title, playerID); err != nil {
		store.Replace(before)
		return QueueResult{Message: "failed to persist leave"}, err
	}

	s.metrics.QueueLeaves.WithLabelValues(string(title)).Inc()
	s.logger.Info().Str("title", string(title)).Str("player_id", playerID).Msg("player left queue")
	return QueueResult{OK: true, Message: "left", Size: store.Size()}, nil
}

// Clear empties a title's queue, typically by an operator.
func (s *QueueService) Clear(ctx context.Context, title domain.GameTitle) (QueueResult, error) {
	store, ok := s.registry.For(title)
	if !ok {
		return QueueResult{Message: "unknown game title"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	store.Clear()
	if err := s.repo.SaveClear(ctx, title); err != nil {
		return QueueResult{Message: "failed to persist clear"}, err
	}
	return QueueResult{OK: true, Message: "cleared"}, nil
}

// QueueStatus is the read view of one title's queue.
type QueueStatus struct {
	Title    domain.GameTitle    `json:"title"`
	Size     int                 `json:"size"`
	Capacity int                 `json:"capacity"`
	Locked   bool                `json:"locked"`
	Full     bool                `json:"full"`
	Entries  []domain.QueueEntry `json:"entries"`
}

func (s *QueueService) Status(title domain.GameTitle) (QueueStatus, bool) {
	store, ok := s.registry.For(title)
	if !ok {
		return QueueStatus{}, false
	}
	return QueueStatus{
		Title:    title,
		Size:     store.Size(),
		Capacity: store.Capacity(),
		Locked:   store.IsLocked(),
		Full:     store.IsFull(),
		Entries:  store.Snapshot(),
	}, true
}
