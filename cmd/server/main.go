package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"phonebook/internal/directory/events"
	directoryhandler "phonebook/internal/directory/handler"
	directorymetrics "phonebook/internal/directory/metrics"
	directoryservice "phonebook/internal/directory/service"
	"phonebook/internal/directory/store"
	"phonebook/internal/platform/config"
	"phonebook/internal/platform/database"
	"phonebook/internal/platform/health"
	"phonebook/internal/platform/httpserver"
	"phonebook/internal/platform/kafka/producer"
	"phonebook/internal/platform/logger"
	"phonebook/internal/platform/metrics"
	"phonebook/internal/platform/middleware"
	"phonebook/internal/platform/redis"
	ratelimitmetrics "phonebook/internal/ratelimit/metrics"
	ratelimitmw "phonebook/internal/ratelimit/middleware"
	ratelimitmodels "phonebook/internal/ratelimit/models"
	ratelimitsvc "phonebook/internal/ratelimit/service"
	"phonebook/internal/ratelimit/store/window"
	"phonebook/internal/ratelimit/workers/cleanup"
	"phonebook/migrations"
	"phonebook/pkg/platform/circuit"
	"phonebook/pkg/platform/httputil"
	"phonebook/pkg/platform/middleware/metadata"
)

const (
	redisPoolStatsInterval = 15 * time.Second
	requestTimeout         = 25 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// contactStore is what the server needs from either store implementation.
type contactStore interface {
	directoryservice.Store
	Count(ctx context.Context) (int, error)
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	log.Info("initializing phonebook",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"postgres", cfg.DatabaseURL != "",
		"redis", cfg.Redis.URL != "",
		"kafka", cfg.Kafka.Enabled(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.DefaultRegisterer
	healthHandler := health.New(cfg.Environment)

	contacts, closeStore, err := buildContactStore(ctx, cfg, log, healthHandler)
	if err != nil {
		return err
	}
	defer closeStore()
	healthHandler.AddStat("contacts", contacts.Count)

	publisher, closePublisher, err := buildPublisher(cfg, log, healthHandler)
	if err != nil {
		return err
	}
	defer closePublisher()

	rlMetrics := ratelimitmetrics.New(reg)
	windowStore, memoryWindows, redisClient, err := buildWindowStore(ctx, cfg, log, healthHandler, rlMetrics)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // shutdown path
	}

	directory := directoryservice.New(contacts, log,
		directoryservice.WithPublisher(publisher),
		directoryservice.WithMetrics(directorymetrics.New(reg)),
	)
	limiter := ratelimitsvc.New(windowStore,
		ratelimitsvc.WithLogger(log),
		ratelimitsvc.WithMetrics(rlMetrics),
	)
	rateLimit := ratelimitmw.New(limiter,
		ratelimitmodels.Policy{Limit: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window},
		log,
		ratelimitmw.WithMetrics(rlMetrics),
	)

	trustedProxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	httpMetrics := metrics.New(reg)
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(metadata.New(trustedProxies...).Handler)
	r.Use(middleware.Logger(log))
	r.Use(httpMetrics.Middleware)
	r.Use(middleware.Timeout(requestTimeout))

	healthHandler.Register(r)
	r.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
	directoryhandler.New(directory, log,
		directoryhandler.WithPageSize(cfg.PageSize),
		directoryhandler.WithRateLimiter(rateLimit),
		directoryhandler.WithMiddleware(middleware.BodyLimit(httputil.MaxBodyBytes)),
	).Register(r)

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		return httpserver.Run(gctx, srv)
	})
	worker := cleanup.New(memoryWindows,
		cleanup.WithLogger(log),
		cleanup.WithInterval(cfg.RateLimit.CleanupInterval),
		cleanup.WithMetrics(rlMetrics),
	)
	g.Go(func() error { return ignoreCanceled(worker.Start(gctx)) })
	if redisClient != nil {
		poolMetrics := redis.NewPoolMetrics(reg)
		g.Go(func() error { return redisClient.RunPoolStats(gctx, redisPoolStatsInterval, poolMetrics) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func buildContactStore(ctx context.Context, cfg config.Server, log *slog.Logger, h *health.Handler) (contactStore, func(), error) {
	pool, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if pool == nil {
		log.Warn("DATABASE_URL not set, contacts are kept in memory")
		return store.NewInMemory(), func() {}, nil
	}

	applied, err := database.Migrate(ctx, pool.DB, migrations.FS)
	if err != nil {
		pool.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	log.Info("database ready", "migrations", applied)
	h.AddCheck("postgres", pool.Health)

	return store.NewPostgres(pool.DB), func() {
		if err := pool.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}, nil
}

func buildPublisher(cfg config.Server, log *slog.Logger, h *health.Handler) (directoryservice.Publisher, func(), error) {
	if !cfg.Kafka.Enabled() {
		return events.NoopPublisher{}, func() {}, nil
	}
	p, err := producer.New(producer.ParseBrokers(cfg.Kafka.Brokers), producer.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}
	h.AddCheck("kafka", p.Health)
	log.Info("publishing contact events", "topic", cfg.Kafka.Topic)
	return events.NewKafkaPublisher(p, cfg.Kafka.Topic), func() {
		if err := p.Close(); err != nil {
			log.Error("failed to close kafka producer", "error", err)
		}
	}, nil
}

// buildWindowStore prefers Redis so limits hold across replicas, with the
// in-memory store as fallback while Redis is unavailable. The in-memory store
// is always returned because the cleanup worker purges it.
func buildWindowStore(ctx context.Context, cfg config.Server, log *slog.Logger, h *health.Handler, m *ratelimitmetrics.Metrics) (ratelimitsvc.WindowStore, *window.InMemoryWindowStore, *redis.Client, error) {
	mem := window.NewInMemoryWindowStore()
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		log.Warn("REDIS_URL not set, rate limits are kept in memory")
		return mem, mem, nil, nil
	}
	h.AddCheck("redis", client.Health)
	shared := window.NewFallbackWindowStore(
		window.NewRedisWindowStore(client),
		mem,
		circuit.New("redis"),
		log,
		m.SetStoreDegraded,
	)
	return shared, mem, client, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
