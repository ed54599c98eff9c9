package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/events"
	"ranked-engine/internal/match"
	"ranked-engine/internal/metrics"
	"ranked-engine/internal/queue"
	"ranked-engine/internal/rank"
	"ranked-engine/internal/rating"
	"ranked-engine/internal/repository"
)

var (
	ErrQueueNotFull  = errors.New("queue is not full")
	ErrMatchInFlight = errors.New("a match is already in flight for this title")
	ErrMatchNotFound = errors.New("match not found")
	ErrNotHost       = errors.New("only the host can confirm the match")
	ErrUnknownTitle  = errors.New("unknown game title")
)

// ParticipantDelta is one participant's rating change with full provenance:
// callers always get the before/after pair, never a bare final number.
type ParticipantDelta struct {
	PlayerID     string `json:"player_id"`
	Team         string `json:"team"`
	RatingBefore int    `json:"rating_before"`
	RatingAfter  int    `json:"rating_after"`
	PointsEarned int    `json:"points_earned"`
	OldTier      string `json:"old_tier"`
	NewTier      string `json:"new_tier"`
	TierChanged  bool   `json:"tier_changed"`
}

type MatchService struct {
	registry    *queue.Registry
	queueRepo   *repository.QueueRepository
	matchRepo   *repository.MatchRepository
	playerRepo  *repository.PlayerRepository
	historyRepo *repository.RankHistoryRepository
	engine      *rating.Engine
	bus         *events.Bus
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	// Serializes formation and result application per title so a report
	// can never interleave with a concurrent formation or cancellation.
	mu sync.Map // domain.GameTitle -> *sync.Mutex
}

func NewMatchService(
	registry *queue.Registry,
	queueRepo *repository.QueueRepository,
	matchRepo *repository.MatchRepository,
	playerRepo *repository.PlayerRepository,
	historyRepo *repository.RankHistoryRepository,
	engine *rating.Engine,
	bus *events.Bus,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *MatchService {
	return &MatchService{
		registry:    registry,
		queueRepo:   queueRepo,
		matchRepo:   matchRepo,
		playerRepo:  playerRepo,
		historyRepo: historyRepo,
		engine:      engine,
		bus:         bus,
		metrics:     m,
		logger:      logger,
	}
}

func (s *MatchService) titleMutex(title domain.GameTitle) *sync.Mutex {
	mu, _ := s.mu.LoadOrStore(title, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// FormMatch locks a full queue and builds a pending match from its roster
// and the split supplied by the team-balancing collaborator. The capacity
// check is re-validated against a fresh read of the durable mirror before
// anything is committed; the queue stays locked until the match reaches a
// terminal state.
func (s *MatchService) FormMatch(ctx context.Context, title domain.GameTitle, split match.Split) (*domain.Match, error) {
	store, ok := s.registry.For(title)
	if !ok {
		return nil, ErrUnknownTitle
	}

	mu := s.titleMutex(title)
	mu.Lock()
	defer mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if store.IsLocked() {
		return nil, ErrMatchInFlight
	}

	// The lock flag does not survive a restart; the durable match record
	// does. Restore the lock when a still-active match turns up.
	if _, _, err := s.matchRepo.ActiveByTitle(ctx, title); err == nil {
		store.Lock()
		return nil, ErrMatchInFlight
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check for an active match: %w", err)
	}

	if !store.IsFull() {
		return nil, ErrQueueNotFull
	}
	store.Lock()

	roster, err := s.queueRepo.Load(ctx, title)
	if err != nil {
		store.Unlock()
		return nil, fmt.Errorf("failed to re-read queue: %w", err)
	}
	if len(roster) != store.Capacity() {
		store.Unlock()
		s.logger.Warn().Str("title", string(title)).Int("stored", len(roster)).Int("capacity", store.Capacity()).Msg("durable queue disagrees with in-memory view, aborting formation")
		return nil, ErrQueueNotFull
	}

	ratings, err := s.playerRepo.RatingsFor(ctx, title, rosterIDs(roster))
	if err != nil {
		store.Unlock()
		return nil, fmt.Errorf("failed to snapshot pre-match ratings: %w", err)
	}

	m, stats, err := match.Form(title, roster, split, ratings)
	if err != nil {
		store.Unlock()
		return nil, err
	}

	if err := s.matchRepo.Create(ctx, m, stats); err != nil {
		store.Unlock()
		return nil, fmt.Errorf("failed to persist match: %w", err)
	}

	s.metrics.MatchesFormed.WithLabelValues(string(title)).Inc()
	s.logger.Info().Str("match_id", m.ID).Str("title", string(title)).Str("host_id", m.HostID).Msg("match formed")
	return m, nil
}

// ConfirmHost records the host's go-ahead and moves the match in-progress.
func (s *MatchService) ConfirmHost(ctx context.Context, matchID, playerID string) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	m, _, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	mu := s.titleMutex(m.Title)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the mutex; the first load only located the title.
	m, stats, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if playerID != m.HostID {
		return nil, ErrNotHost
	}
	if err := match.ConfirmHost(m); err != nil {
		return nil, err
	}
	if err := match.Start(m); err != nil {
		return nil, err
	}
	if err := s.matchRepo.SaveResult(ctx, m, stats); err != nil {
		return nil, fmt.Errorf("failed to persist confirmation: %w", err)
	}

	s.logger.Info().Str("match_id", m.ID).Str("host_id", m.HostID).Msg("host confirmed, match in progress")
	return m, nil
}

// Report applies a complete result to an in-flight match: the lifecycle
// validates and completes it, the rating engine computes each participant's
// delta off pre-match snapshots, tiers are reclassified against the
// progression table, combined ranks recomputed, history appended on tier
// change, and the queue released for the next cycle.
func (s *MatchService) Report(ctx context.Context, matchID string, report match.Report) ([]ParticipantDelta, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	m, _, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	mu := s.titleMutex(m.Title)
	mu.Lock()
	defer mu.Unlock()

	// The first load only located the title. Re-read under the mutex so the
	// terminal-state check cannot run on a copy a concurrent report already
	// completed.
	m, stats, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	stats, err = match.ApplyReport(m, stats, report)
	if err != nil {
		return nil, err
	}

	avgA, avgB := match.TeamAverages(m, stats)

	deltas := make([]ParticipantDelta, 0, len(stats))
	for i, st := range stats {
		teamAvg, oppAvg := avgA, avgB
		if st.Team == domain.TeamB {
			teamAvg, oppAvg = avgB, avgA
		}
		out := s.engine.ApplyMatchResult(rating.Participant{
			PlayerID:     st.PlayerID,
			RatingBefore: st.RatingBefore,
			Won:          st.Team == m.Winner,
			Kills:        st.Kills,
			Deaths:       st.Deaths,
			Assists:      st.Assists,
			MVP:          st.MVP,
			TeamAvg:      teamAvg,
			OpponentAvg:  oppAvg,
		})
		if out.Fallback {
			s.metrics.RatingFallbacks.Inc()
		}

		stats[i].RatingAfter = out.RatingAfter
		stats[i].PointsEarned = out.PointsEarned

		oldTier := rank.Progression.TierForRating(out.RatingBefore)
		newTier := rank.Progression.TierForRating(out.RatingAfter)
		deltas = append(deltas, ParticipantDelta{
			PlayerID:     st.PlayerID,
			Team:         string(st.Team),
			RatingBefore: out.RatingBefore,
			RatingAfter:  out.RatingAfter,
			PointsEarned: out.PointsEarned,
			OldTier:      oldTier.Name,
			NewTier:      newTier.Name,
			TierChanged:  oldTier != newTier,
		})
	}

	if err := s.matchRepo.SaveResult(ctx, m, stats); err != nil {
		return nil, fmt.Errorf("failed to persist match result: %w", err)
	}

	for _, d := range deltas {
		if err := s.applyPlayerDelta(ctx, m, d); err != nil {
			return nil, err
		}
	}

	if store, ok := s.registry.For(m.Title); ok {
		store.Clear()
		if err := s.queueRepo.SaveClear(ctx, m.Title); err != nil {
			return nil, err
		}
	}

	s.metrics.MatchesCompleted.WithLabelValues(string(m.Title)).Inc()
	s.logger.Info().Str("match_id", m.ID).Str("winner", string(m.Winner)).Msg("match completed")
	return deltas, nil
}

func (s *MatchService) applyPlayerDelta(ctx context.Context, m *domain.Match, d ParticipantDelta) error {
	newTier := rank.Progression.TierForRating(d.RatingAfter)
	tr := domain.TitleRating{
		Title:      m.Title,
		Rating:     d.RatingAfter,
		PeakRating: d.RatingAfter,
		Tier:       newTier.Value,
		TierName:   newTier.Name,
	}
	if err := s.playerRepo.UpsertTitleRating(ctx, d.PlayerID, tr); err != nil {
		return err
	}

	if !d.TierChanged {
		return nil
	}

	entry := domain.RankHistoryEntry{
		PlayerID:  d.PlayerID,
		Title:     m.Title,
		OldRating: d.RatingBefore,
		NewRating: d.RatingAfter,
		OldTier:   d.OldTier,
		NewTier:   d.NewTier,
		Reason:    domain.HistoryReasonMatch,
		MatchID:   m.ID,
		CreatedAt: time.Now(),
	}
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		return err
	}

	s.metrics.TierChanges.WithLabelValues(string(m.Title)).Inc()
	return s.bus.Publish(ctx, events.Event{
		Name: events.TierChanged,
		Payload: events.TierChange{
			PlayerID: d.PlayerID,
			Title:    m.Title,
			OldTier:  d.OldTier,
			NewTier:  d.NewTier,
			MatchID:  m.ID,
		},
	})
}

// Cancel aborts an in-flight match through the ordinary transition and
// releases the queue lock so a new cycle can start. The roster stays queued;
// cancellation carries no rating effects.
func (s *MatchService) Cancel(ctx context.Context, matchID string) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	m, _, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	mu := s.titleMutex(m.Title)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the mutex; the first load only located the title.
	m, stats, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if err := match.Cancel(m); err != nil {
		return nil, err
	}
	if err := s.matchRepo.SaveResult(ctx, m, stats); err != nil {
		return nil, fmt.Errorf("failed to persist cancellation: %w", err)
	}

	if store, ok := s.registry.For(m.Title); ok {
		store.Unlock()
	}

	s.metrics.MatchesCancelled.WithLabelValues(string(m.Title)).Inc()
	s.logger.Info().Str("match_id", m.ID).Msg("match cancelled")
	return m, nil
}

// Get returns a match with its per-player stats.
func (s *MatchService) Get(ctx context.Context, matchID string) (*domain.Match, []domain.MatchPlayerStat, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.loadMatch(ctx, matchID)
}

func (s *MatchService) loadMatch(ctx context.Context, matchID string) (*domain.Match, []domain.MatchPlayerStat, error) {
	m, stats, err := s.matchRepo.Get(ctx, matchID)
	if err == sql.ErrNoRows {
		return nil, nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	return m, stats, nil
}

func rosterIDs(entries []domain.QueueEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.PlayerID
	}
	return ids
}
