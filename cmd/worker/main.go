// Command worker consumes correction events, distills them into learned
// rules, and periodically rebuilds the extraction rule bundle.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/learning"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/config"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/intelligence/clause_engine"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	metricsAddr := flag.String("metrics-addr", ":9091", "metrics and health listen address")
	flag.Parse()

	if err := run(*configPath, *metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, metricsAddr string) error {
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
	logger = logger.Named("worker")
	logger.Info("Starting ClauseIQ worker",
		logging.String("version", version),
		logging.Int("concurrency", cfg.Worker.Concurrency))

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
	locks := redis.NewLockFactory(redisClient, logger)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "clauseiq",
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	// ── Distiller ─────────────────────────────────────────────────────────────

	ruleRepo := repositories.NewLearnedRuleRepository(pg.Pool(), logger)
	correctionRepo := repositories.NewCorrectionRepository(pg.Pool(), logger)

	adapter := clause_engine.NewLearnedRuleAdapter(ruleRepo, logger)
	coordinator := clause_engine.NewCoordinator(adapter, logger)
	coordinator.Refresh(ctx)

	distiller := learning.NewDistiller(correctionRepo, ruleRepo, coordinator, resultCache, locks, metrics, logger)

	// ── Consumers ─────────────────────────────────────────────────────────────

	dlqProducer, err := kafka.NewProducer(cfg.Kafka, "worker", logger)
	if err != nil {
		return err
	}
	defer dlqProducer.Close()

	concurrency := cfg.Worker.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	consumers := make([]*kafka.Consumer, 0, concurrency)
	for i := 0; i < concurrency; i++ {
		consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.Worker, kafka.TopicCorrections,
			distiller.HandleMessage, logger,
			kafka.WithDeadLetter(dlqProducer, kafka.TopicCorrectionsDeadLetter))
		if err != nil {
			return err
		}
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		consumers = append(consumers, consumer)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		distiller.Run(ctx, cfg.Engine.RefreshInterval)
	}()

	// ── Metrics endpoint ──────────────────────────────────────────────────────

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", logging.Err(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	for _, consumer := range consumers {
		if err := consumer.Close(); err != nil {
			logger.Warn("Consumer close failed", logging.Err(err))
		}
	}
	wg.Wait()
	_ = metricsSrv.Shutdown(context.Background())

	logger.Info("Worker stopped")
	return nil
}
