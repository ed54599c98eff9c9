package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"ranked-engine/internal/config"
	"ranked-engine/internal/constants"
	"ranked-engine/internal/events"
	fxmodules "ranked-engine/internal/fx"
	"ranked-engine/internal/middleware"
	"ranked-engine/internal/server"
	"ranked-engine/internal/service"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	srv *server.Server,
	queueSvc *service.QueueService,
	bus *events.Bus,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	// The external role-sync job consumes these; log them so operators can
	// audit what it will see.
	bus.Subscribe(events.TierChanged, func(_ context.Context, e events.Event) error {
		if change, ok := e.Payload.(events.TierChange); ok {
			logger.Info().
				Str("player_id", change.PlayerID).
				Str("title", string(change.Title)).
				Str("old_tier", change.OldTier).
				Str("new_tier", change.NewTier).
				Str("match_id", change.MatchID).
				Msg("tier changed")
		}
		return nil
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(c.Handler(srv.Routes()))

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := queueSvc.Sync(ctx); err != nil {
				return err
			}
			go func() {
				logger.Info().Str("addr", httpSrv.Addr).Msg("server starting")
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
