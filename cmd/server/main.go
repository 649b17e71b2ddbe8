package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	caseshandler "kycengine/internal/cases/handler"
	casesmetrics "kycengine/internal/cases/metrics"
	"kycengine/internal/cases/service"
	"kycengine/internal/cases/store"
	"kycengine/internal/catalog"
	"kycengine/internal/classification"
	classmetrics "kycengine/internal/classification/metrics"
	"kycengine/internal/platform/config"
	"kycengine/internal/platform/database"
	"kycengine/internal/platform/httpserver"
	"kycengine/internal/platform/kafka"
	"kycengine/internal/platform/logger"
	"kycengine/internal/platform/metrics"
	"kycengine/internal/platform/redis"
	"kycengine/internal/submission"
	httptransport "kycengine/internal/transport/http"
	"kycengine/internal/verification/cache"
	vmetrics "kycengine/internal/verification/metrics"
	vmodels "kycengine/internal/verification/models"
	"kycengine/internal/verification/orchestrator"
	"kycengine/internal/verification/providers"
	"kycengine/pkg/platform/audit"
	"kycengine/pkg/platform/audit/publisher"
	auditmemory "kycengine/pkg/platform/audit/store/memory"
	auditpostgres "kycengine/pkg/platform/audit/store/postgres"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initial, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load rule catalog %s: %w", cfg.CatalogPath, err)
	}
	log.Info("rule catalog loaded", "version", initial.Version(), "path", cfg.CatalogPath)

	var classifier *classification.Classifier
	registry := catalog.NewRegistry(initial,
		catalog.WithLogger(log),
		catalog.WithSource(catalog.FileSource{Path: cfg.CatalogPath}),
		catalog.WithOnSwap(func(prev, next *catalog.Snapshot) { classifier.OnCatalogSwap(prev, next) }),
	)
	classifier = classification.New(registry,
		classification.WithLogger(log),
		classification.WithMetrics(classmetrics.New()),
	)

	health := map[string]httptransport.HealthCheck{}

	caseStore, auditStore, db, err := openStores(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		health["database"] = db.PingContext
	}

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(vmetrics.New()),
	}
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		orchOpts = append(orchOpts, orchestrator.WithCache(cache.NewRedisCache(redisClient.Client)))
		health["redis"] = redisClient.Health
		log.Info("provider cache backed by redis")
	} else {
		orchOpts = append(orchOpts, orchestrator.WithCache(cache.NewMemoryCache()))
	}

	providerRegistry, err := providers.FromConfig(cfg.Providers, !cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("configure providers: %w", err)
	}
	log.Info("verification providers configured", "providers", providerRegistry.IDs())

	var svc *service.Service
	orchOpts = append(orchOpts, orchestrator.WithLateResultSink(func(caseID string, r vmodels.CheckResult) {
		svc.ApplyLateResult(context.Background(), caseID, r)
	}))
	orch := orchestrator.New(providerRegistry, orchestrator.ConfigFrom(cfg.Providers), orchOpts...)

	sink, closeSink, err := openPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeSink()

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(casesmetrics.New()),
		service.WithAuditPublisher(auditPublisher),
	}
	if db != nil {
		svcOpts = append(svcOpts, service.WithTransactor(db))
	}
	svc = service.New(caseStore, classifier, orch, sink, svcOpts...)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:     log,
		Metrics:    metrics.NewHTTP(),
		AdminToken: cfg.AdminToken,
		Catalog:    registry,
		Health:     health,
		Modules:    []httptransport.Registrar{caseshandler.New(svc, log)},
	})
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting kycengine", "addr", cfg.Addr, "env", cfg.Environment)
	return httpserver.Run(ctx, srv, log, svc.Shutdown)
}

// openStores picks the case and audit stores for the configured driver and
// applies their schemas.
func openStores(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (service.Store, audit.Store, *database.DB, error) {
	if cfg.Driver == "" || cfg.Driver == "memory" {
		log.Info("using in-memory case store")
		return store.NewInMemory(), auditmemory.NewInMemoryStore(), nil, nil
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	schemas := []string{store.Schema}
	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if db.Driver == database.DriverPostgres {
		schemas = append(schemas, auditpostgres.Schema)
		auditStore = auditpostgres.New(db.DB)
	}
	if err := database.Migrate(ctx, db.DB, schemas...); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	log.Info("using sql case store", "driver", db.Driver)
	return store.NewSQL(db.DB, db.Driver), auditStore, db, nil
}

// openPublisher returns the Kafka publisher when brokers are configured and
// an in-memory one otherwise.
func openPublisher(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (submission.Publisher, func(), error) {
	client, err := kafka.NewProducer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("no kafka brokers configured; submissions are kept in memory")
		return submission.NewMemoryPublisher(), func() {}, nil
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.SubmissionTopic, 1, 1); err != nil {
		log.Warn("could not ensure submission topic", "topic", cfg.SubmissionTopic, "error", err)
	}
	log.Info("submissions published to kafka", "topic", cfg.SubmissionTopic)
	return submission.NewKafkaPublisher(client, cfg.SubmissionTopic), client.Close, nil
}
