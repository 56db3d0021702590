package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/jumpgate/internal/config"
	"github.com/MrSnakeDoc/jumpgate/internal/logger"
	"github.com/MrSnakeDoc/jumpgate/internal/redis"
	"github.com/MrSnakeDoc/jumpgate/internal/sources/seed"
	redisstore "github.com/MrSnakeDoc/jumpgate/internal/store/redis"
	"github.com/MrSnakeDoc/jumpgate/internal/utils"
)

// Seed writes a seed file into the store once and exits. Running gateways
// pick the changes up on their next resync. An empty path falls back to
// JUMPGATE_SEED_FILE.
func Seed(ctx context.Context, path string) error {
	cfg := config.LoadStore()
	if path == "" {
		path = cfg.SeedFile
	}
	if path == "" {
		return fmt.Errorf("no seed file: pass --file or set JUMPGATE_SEED_FILE")
	}

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = loggerClient.Sync() }()

	client, err := redis.Connect(ctx, redis.OptionsFromConfig(cfg), loggerClient)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer utils.CloseLogged(client, "redis", loggerClient)

	stats, err := seed.Sync(ctx, seed.NewLoader(path), seed.NewMapper(), redisstore.NewStore(client))
	if err != nil {
		return err
	}

	loggerClient.Info("seed written",
		logger.String("file", path),
		logger.Int("services", stats.Services),
		logger.Int("routes", stats.Routes),
		logger.Int("applications", stats.Applications),
		logger.Int("accounts", stats.Accounts),
		logger.Int("groups", stats.Groups),
		logger.Int("sessions", stats.Sessions))
	return nil
}
