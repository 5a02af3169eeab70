// Command apiserver runs the ClauseIQ HTTP API: clause parsing, parse-record
// review, and learned-rule curation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/parsing"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/review"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/rules"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/config"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/intelligence/clause_engine"
	httpserver "github.com/turtacn/ClauseIQ-Intelligence/internal/interfaces/http"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/interfaces/http/middleware"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return err
	}
	logger = logger.Named("apiserver")
	logger.Info("Starting ClauseIQ API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Infrastructure ────────────────────────────────────────────────────────

	pg, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Migrate(); err != nil {
		return err
	}

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	cache := redis.NewRedisCache(redisClient, logger)
	resultCache := redis.NewResultCache(cache, cfg.Engine.ResultCacheTTL, logger)

	producer, err := kafka.NewProducer(cfg.Kafka, "apiserver", logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "clauseiq",
		Subsystem:            "apiserver",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	// ── Repositories and engine ───────────────────────────────────────────────

	recordRepo := repositories.NewParseRecordRepository(pg.Pool(), logger)
	ruleRepo := repositories.NewLearnedRuleRepository(pg.Pool(), logger)
	correctionRepo := repositories.NewCorrectionRepository(pg.Pool(), logger)

	var adapter *clause_engine.LearnedRuleAdapter
	if cfg.Engine.LearnedRulesEnabled {
		adapter = clause_engine.NewLearnedRuleAdapter(ruleRepo, logger)
	}
	coordinator := clause_engine.NewCoordinator(adapter, logger)
	coordinator.Refresh(ctx)
	go refreshLoop(ctx, coordinator, cfg.Engine.RefreshInterval, logger)
	if configPath != "" {
		config.Watch(configPath, func(updated *config.Config) {
			logger.Info("Configuration file changed, refreshing rule bundle",
				logging.Duration("refresh_interval", updated.Engine.RefreshInterval))
			coordinator.Refresh(ctx)
		})
	}

	// ── Application services ──────────────────────────────────────────────────

	parsingSvc := parsing.NewService(coordinator, recordRepo, resultCache, producer, metrics, cfg.Engine, logger)
	reviewSvc := review.NewService(recordRepo, correctionRepo, producer, "apiserver", logger)
	rulesSvc := rules.NewService(ruleRepo, logger)

	// ── HTTP stack ────────────────────────────────────────────────────────────

	router := httpserver.NewRouter(httpserver.RouterConfig{
		ParsingService: parsingSvc,
		ReviewService:  reviewSvc,
		RulesService:   rulesSvc,
		Version:        version,
		HealthCheckers: []handlers.HealthChecker{
			&postgresHealthAdapter{conn: pg},
			&redisHealthAdapter{client: redisClient},
		},
		Logger:      logger,
		Metrics:     metrics,
		MetricsHTTP: collector.Handler(),
		CORS:        middleware.DefaultCORSConfig(),
		RateLimiter: cache,
	})

	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	return <-errCh
}

// refreshLoop rebuilds the rule bundle on the configured interval, keeping
// learned rules distilled by the worker flowing into this instance.
func refreshLoop(ctx context.Context, coordinator *clause_engine.Coordinator, interval time.Duration, logger logging.Logger) {
	if interval <= 0 {
		interval = config.DefaultEngineRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			coordinator.Refresh(ctx)
			logger.Debug("Rule bundle refresh tick")
		}
	}
}
