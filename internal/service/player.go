package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ranked-engine/internal/api"
	"ranked-engine/internal/config"
	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/events"
	"ranked-engine/internal/rank"
	"ranked-engine/internal/repository"
)

var ErrAlreadyPlaced = errors.New("player already has a rating for this title")

// Profile is the external read view of a player: per-title standings, the
// combined displayed rank, and recent rank history.
type Profile struct {
	Player   *domain.Player            `json:"player"`
	Combined rank.CombinedRank         `json:"combined"`
	History  []domain.RankHistoryEntry `json:"history"`
}

type PlayerService struct {
	tracker     *api.TrackerClient
	playerRepo  *repository.PlayerRepository
	historyRepo *repository.RankHistoryRepository
	bus         *events.Bus
	cfg         *config.Config
	logger      zerolog.Logger
}

func NewPlayerService(
	tracker *api.TrackerClient,
	playerRepo *repository.PlayerRepository,
	historyRepo *repository.RankHistoryRepository,
	bus *events.Bus,
	cfg *config.Config,
	logger zerolog.Logger,
) *PlayerService {
	return &PlayerService{
		tracker:     tracker,
		playerRepo:  playerRepo,
		historyRepo: historyRepo,
		bus:         bus,
		cfg:         cfg,
		logger:      logger,
	}
}

// GetProfile loads the player and their recent history in parallel and
// recomputes the combined rank from the per-title values it derives from.
func (s *PlayerService) GetProfile(ctx context.Context, playerID string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	var player *domain.Player
	var history []domain.RankHistoryEntry

	g.Go(func() error {
		var err error
		player, err = s.playerRepo.Get(gCtx, playerID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.historyRepo.ListByPlayer(gCtx, playerID, constants.RankHistoryLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to load profile")
		return nil, err
	}

	return &Profile{
		Player:   player,
		Combined: rank.ResolveCombined(player),
		History:  history,
	}, nil
}

// Register creates or updates the player's identity and resolution
// settings. Ratings are untouched; those only move via placement or match
// results.
func (s *PlayerService) Register(ctx context.Context, p *domain.Player) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if p.ResolveMode == "" {
		p.ResolveMode = domain.ResolveHighest
	}
	if p.ResolveMode == domain.ResolvePrimary && !p.PrimaryTitle.Valid() {
		return fmt.Errorf("primary resolve mode requires a valid primary title")
	}
	return s.playerRepo.Upsert(ctx, p)
}

// Place seeds a brand-new standing for one title from the verified external
// rank. It runs once per (player, title): a player who already has a rating
// keeps it, and the seed never exceeds the configured ceiling.
func (s *PlayerService) Place(ctx context.Context, playerID string, title domain.GameTitle, account string) (*rank.Placed, error) {
	if !title.Valid() {
		return nil, ErrUnknownTitle
	}

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	player, err := s.playerRepo.Get(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("player not found: %w", err)
	}
	if _, ok := player.Ratings[title]; ok {
		return nil, ErrAlreadyPlaced
	}

	apiCtx, apiCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer apiCancel()

	verified, err := s.tracker.GetVerifiedRank(apiCtx, title, account)
	if err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Str("title", string(title)).Msg("failed to fetch verified rank")
		return nil, fmt.Errorf("failed to fetch verified rank: %w", err)
	}

	placed, err := rank.SeedPlacement(title, verified.RankLabel, verified.Elo, s.cfg.PlacementCeiling)
	if err != nil {
		return nil, err
	}

	tr := domain.TitleRating{
		Title:      title,
		Rating:     placed.Rating,
		PeakRating: placed.Rating,
		Tier:       placed.Tier.Value,
		TierName:   placed.Tier.Name,
	}
	if err := s.playerRepo.UpsertTitleRating(ctx, playerID, tr); err != nil {
		return nil, err
	}

	entry := domain.RankHistoryEntry{
		PlayerID:  playerID,
		Title:     title,
		OldRating: 0,
		NewRating: placed.Rating,
		OldTier:   "",
		NewTier:   placed.Tier.Name,
		Reason:    domain.HistoryReasonPlacement,
		CreatedAt: time.Now(),
	}
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.Event{
		Name: events.TierChanged,
		Payload: events.TierChange{
			PlayerID: playerID,
			Title:    title,
			OldTier:  "",
			NewTier:  placed.Tier.Name,
		},
	}); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("player_id", playerID).
		Str("title", string(title)).
		Int("rating", placed.Rating).
		Bool("capped", placed.Capped).
		Msg("player placed")
	return &placed, nil
}

func (s *PlayerService) Leaderboard(ctx context.Context, title domain.GameTitle) ([]repository.LeaderboardRow, error) {
	if !title.Valid() {
		return nil, ErrUnknownTitle
	}
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.playerRepo.Leaderboard(ctx, title, constants.LeaderboardLimit)
}
