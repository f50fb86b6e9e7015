package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/tair/smart-inventory/docs"
	"github.com/tair/smart-inventory/internal/config"
	"github.com/tair/smart-inventory/internal/inventory"
	grpcDelivery "github.com/tair/smart-inventory/internal/inventory/delivery/grpc"
	httpDelivery "github.com/tair/smart-inventory/internal/inventory/delivery/http"
	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/repository"
	"github.com/tair/smart-inventory/internal/inventory/usecase/query"
	"github.com/tair/smart-inventory/kafka"
	"github.com/tair/smart-inventory/pkg/auth"
	"github.com/tair/smart-inventory/pkg/database"
	"github.com/tair/smart-inventory/pkg/logger"
	"github.com/tair/smart-inventory/pkg/tracing"
)

const devJWTSecret = "development-only-secret"

func main() {
	cfg, err := config.Load()
	logger.Init(logger.Options{
		ServiceName: cfg.ServiceName,
		Development: cfg.IsDevelopment(),
		Level:       cfg.LogLevel,
	})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Str("store", cfg.StoreDriver).
		Msg("Starting inventory service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.ServiceName,
		JaegerEndpoint: cfg.JaegerURL,
	})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to flush traces")
		}
	}()

	store, pinger, closeStore := openStore(ctx, cfg)
	defer closeStore()

	var cache query.ReportCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, report cache disabled")
		} else {
			cache = repository.NewRedisReportCache(client)
			logger.Logger.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.ReportTTL).Msg("Report cache enabled")
		}
	}

	var events domain.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.KafkaBrokers)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Kafka unavailable, events disabled")
		} else {
			defer publisher.Close()
			events = publisher
		}
	}

	tokens := newTokenManager(cfg)

	reg := prometheus.DefaultRegisterer
	svc, err := inventory.InitializeService(store, events, cache, query.ReportOptions{
		Location: cfg.Location,
		CacheTTL: cfg.ReportTTL,
		TopLimit: cfg.ReportTopN,
	}, reg, tokens)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize service")
	}

	if len(cfg.KafkaBrokers) > 0 {
		startConsumer(ctx, cfg, svc)
	}

	healthServer := startGRPCServer(ctx, cfg.GRPCPort, pinger, grpcDelivery.NewMetrics(reg))
	httpServer := startHTTPServer(svc.Handler, pinger, cfg.HTTPPort)

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	healthServer.GracefulStop()

	logger.Logger.Info().Msg("Server stopped")
}

// openStore selects the ledger store. The returned pinger is nil for the in-memory store.
func openStore(ctx context.Context, cfg config.Config) (domain.Store, httpDelivery.Pinger, func()) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Logger.Warn().Msg("Using in-memory store, data is lost on restart")
		store := repository.NewMemoryStore(repository.WithLockTimeout(cfg.LockTimeout))
		return repository.NewStoreWithTracing(store), nil, func() {}
	}

	db, err := database.NewGormConnection(ctx, cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}

	store := repository.NewGormStore(db, cfg.LockTimeout)
	if err := store.AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Logger.Info().Dur("lock_timeout", cfg.LockTimeout).Msg("Database initialized successfully")

	return repository.NewStoreWithTracing(store), sqlDB, func() { sqlDB.Close() }
}

func newTokenManager(cfg config.Config) *auth.TokenManager {
	secret := cfg.JWTSecret
	if secret == "" && cfg.IsDevelopment() {
		logger.Logger.Warn().Msg("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}
	tokens, err := auth.NewTokenManager(secret, cfg.JWTIssuer)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create token manager")
	}
	return tokens
}

func startConsumer(ctx context.Context, cfg config.Config, svc *inventory.Service) {
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, []string{kafka.TopicStockReceived})
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Kafka consumer unavailable, stock-received events are not applied")
		return
	}
	consumer.RegisterHandler(kafka.EventTypeStockReceived, svc.StockReceivedHandler())
	if err := consumer.Start(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to start Kafka consumer")
		return
	}
	go func() {
		<-ctx.Done()
		if err := consumer.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close Kafka consumer")
		}
	}()
}

func startGRPCServer(ctx context.Context, port string, db httpDelivery.Pinger, metrics *grpcDelivery.Metrics) *grpcDelivery.HealthServer {
	var pinger grpcDelivery.Pinger
	if db != nil {
		pinger = db
	}
	server := grpcDelivery.NewHealthServer(pinger, metrics)

	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		logger.Logger.Fatal().Err(err).Str("port", port).Msg("Failed to listen for gRPC")
	}
	go func() {
		if err := server.Serve(lis); err != nil {
			logger.Logger.Error().Err(err).Msg("gRPC server stopped")
		}
	}()
	go server.Watch(ctx, 10*time.Second)

	return server
}

func startHTTPServer(handler *httpDelivery.InventoryHandler, db httpDelivery.Pinger, port string) *http.Server {
	router := mux.NewRouter()

	mwConfig := httpDelivery.DefaultMiddlewareConfig()
	httpDelivery.RegisterMiddlewares(router, mwConfig)

	handler.RegisterRoutes(router)
	handler.RegisterHealthCheck(router, db)
	router.Handle("/metrics", promhttp.Handler())
	httpDelivery.RegisterSwaggerDocs(router)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           httpDelivery.SetupCORS(mwConfig)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Logger.Info().
			Str("port", port).
			Str("metrics_endpoint", "/metrics").
			Str("swagger", "/swagger/index.html").
			Msg("HTTP server started")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	return server
}
