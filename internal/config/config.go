package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"ranked-engine/internal/rank"
)

type Config struct {
	DBPath           string
	ServerPort       string
	LogLevel         string
	QueueCapacity    int
	PlacementCeiling int
	TrackerAPIKey    string
	TrackerBaseURL   string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:           getEnv("DB_PATH", "ranked.db"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		QueueCapacity:    getEnvInt("QUEUE_CAPACITY", 10),
		PlacementCeiling: getEnvInt("PLACEMENT_CEILING", rank.DefaultPlacementCeiling),
		TrackerAPIKey:    getEnv("TRACKER_API_KEY", ""),
		TrackerBaseURL:   getEnv("TRACKER_BASE_URL", "https://api.henrikdev.xyz"),
	}

	if cfg.QueueCapacity < 2 || cfg.QueueCapacity%2 != 0 {
		return nil, fmt.Errorf("QUEUE_CAPACITY must be a positive even number, got %d", cfg.QueueCapacity)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("queue_capacity", cfg.QueueCapacity).
		Int("placement_ceiling", cfg.PlacementCeiling).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
