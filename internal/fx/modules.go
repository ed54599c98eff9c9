package fx

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"ranked-engine/internal/api"
	"ranked-engine/internal/config"
	"ranked-engine/internal/database"
	"ranked-engine/internal/events"
	"ranked-engine/internal/logger"
	"ranked-engine/internal/metrics"
	"ranked-engine/internal/queue"
	"ranked-engine/internal/rating"
	"ranked-engine/internal/repository"
	"ranked-engine/internal/server"
	"ranked-engine/internal/service"
)

func ProvideRegistry(cfg *config.Config, log zerolog.Logger) *queue.Registry {
	return queue.NewRegistry(cfg.QueueCapacity, log)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(metrics.New),
	fx.Provide(events.NewBus),
	// core engines
	fx.Provide(ProvideRegistry),
	fx.Provide(rating.NewEngine),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewQueueRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewRankHistoryRepository),
	// api client
	fx.Provide(api.NewTrackerClient),
	// svc
	fx.Provide(service.NewQueueService),
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewPlayerService),
	// server
	fx.Provide(server.New),
)
