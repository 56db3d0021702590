package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/jumpgate/internal/catalog"
	"github.com/MrSnakeDoc/jumpgate/internal/config"
	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	"github.com/MrSnakeDoc/jumpgate/internal/gateway"
	"github.com/MrSnakeDoc/jumpgate/internal/httpserver"
	"github.com/MrSnakeDoc/jumpgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/jumpgate/internal/index"
	"github.com/MrSnakeDoc/jumpgate/internal/logger"
	"github.com/MrSnakeDoc/jumpgate/internal/redis"
	"github.com/MrSnakeDoc/jumpgate/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/jumpgate/internal/store/redis"
	"github.com/MrSnakeDoc/jumpgate/internal/utils"
	"github.com/MrSnakeDoc/jumpgate/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	reloader    *scheduler.RouteReloader
	seedWatcher *scheduler.SeedWatcher
	collector   *scheduler.SessionCollector
}

// New wires the gateway. Redis must be reachable: startup fails otherwise.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	loggerClient.Info("connecting to Redis", logger.String("addr", cfg.RedisAddr))
	redisClient, err := redis.Connect(ctx, redis.OptionsFromConfig(cfg), loggerClient)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	loggerClient.Info("Redis initialized successfully")

	store := redisstore.NewStore(redisClient)

	gw, err := ensureGateway(ctx, cfg, store, loggerClient)
	if err != nil {
		utils.CloseLogged(redisClient, "redis", loggerClient)
		return nil, err
	}

	errorCatalog, err := catalog.Load(cfg.ErrorsFile)
	if err != nil {
		utils.CloseLogged(redisClient, "redis", loggerClient)
		return nil, err
	}
	loggerClient.Info("error catalog loaded",
		logger.String("format", cfg.ErrorFormat),
		logger.Int("documented", errorCatalog.Len()))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := gateway.NewMetrics(registry)

	forwarder := gateway.NewForwarder(gateway.ForwarderOptions{
		ConnectTimeout: cfg.ForwardConnectTimeout,
		TotalTimeout:   cfg.ForwardTotalTimeout,
	}, loggerClient)

	pipeline := gateway.NewPipeline(store, forwarder, metrics, loggerClient, gateway.PipelineOptions{
		BasePath:           cfg.BasePath,
		Gateway:            gw,
		DeploymentTestMode: cfg.TestMode,
		StoreTimeout:       cfg.StoreTimeout,
		Responder:          gateway.NewResponder(cfg.ErrorFormat, errorCatalog),
	})

	table := gateway.NewTable()
	memIndex := index.NewMemoryIndex()

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)

	reloader := scheduler.NewRouteReloader(
		store,
		gateway.NewBuilder(cfg.BasePath, pipeline, loggerClient),
		table,
		memIndex,
		metrics,
		loggerClient,
		cfg.RebuildInterval,
		reloadTrigger,
	)

	var seedWatcher *scheduler.SeedWatcher
	if cfg.SeedFile != "" {
		loggerClient.Info("seed file configured, initializing seed watcher",
			logger.String("file", cfg.SeedFile))
		seedWatcher, err = scheduler.NewSeedWatcher(cfg.SeedFile, store, reloadTrigger, loggerClient)
		if err != nil {
			utils.CloseLogged(redisClient, "redis", loggerClient)
			return nil, err
		}
	}

	var collector *scheduler.SessionCollector
	if cfg.SessionGCInterval > 0 {
		collector = scheduler.NewSessionCollector(store, loggerClient, cfg.SessionGCInterval, cfg.SessionGCGrace)
	} else {
		loggerClient.Info("session collection disabled")
	}

	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		Store:         store,
		MemoryIndex:   memIndex,
		Table:         table,
		Gateway:       gw,
		ReloadTrigger: reloadTrigger,
		Gatherer:      registry,
		PingTimeout:   cfg.RedisPingTimeout,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		reloader:    reloader,
		seedWatcher: seedWatcher,
		collector:   collector,
	}, nil
}

// ensureGateway registers this gateway once. An existing record is kept as
// is, so the stored token is the one injected into forwarded requests.
func ensureGateway(ctx context.Context, cfg *config.Config, store *redisstore.Store, log logger.Logger) (*domain.Gateway, error) {
	gw, err := store.EnsureGateway(ctx, cfg.GatewayURL, cfg.GatewayToken, domain.ParseLocality(cfg.GatewayLocality))
	if err != nil {
		return nil, fmt.Errorf("failed to register gateway: %w", err)
	}
	if gw.Token != cfg.GatewayToken {
		log.Warn("stored gateway token differs from JUMPGATE_TOKEN, using the stored one",
			logger.String("gateway_id", gw.ID))
	}
	log.Info("gateway registered",
		logger.String("gateway_id", gw.ID),
		logger.String("url", gw.URL),
		logger.String("locality", string(gw.Locality)))
	return gw, nil
}

// Run serves until ctx is done, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("🚀 Starting Jumpgate v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Jumpgate %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	// Seed before the first build so the table starts complete.
	if a.seedWatcher != nil {
		if err := a.seedWatcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start seed watcher: %w", err)
		}
		defer a.seedWatcher.Stop()
	}

	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start route reloader: %w", err)
	}
	defer a.reloader.Stop()
	a.logger.Info("route reloader started",
		logger.Duration("interval", a.cfg.RebuildInterval))

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			return fmt.Errorf("failed to start session collector: %w", err)
		}
		defer a.collector.Stop()
		a.logger.Info("session collector started",
			logger.Duration("interval", a.cfg.SessionGCInterval),
			logger.Duration("grace", a.cfg.SessionGCGrace))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	utils.CloseLogged(a.redisClient, "redis", a.logger)

	a.logger.Info("✅ Jumpgate stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
