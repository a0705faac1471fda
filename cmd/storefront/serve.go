package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/config"
	healthgrpc "github.com/fjod/storefront/internal/grpc"
	httpapi "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/publisher"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
	"github.com/fjod/storefront/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health endpoint and checkout publisher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts.Config, rootOpts.Logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// stopped before any teardown below
	ctx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	tp, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer provider shutdown failed", zap.Error(err))
		}
	}()

	// Catalog
	products, err := catalog.NewSQLRepository(cfg.CatalogDriver, cfg.CatalogDSN)
	if err != nil {
		return err
	}
	defer products.Close()
	if err := products.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if n, err := catalog.SeedIfEmpty(ctx, products, catalog.SampleProducts()); err != nil {
		return err
	} else if n > 0 {
		log.Info("seeded empty catalog with sample products", zap.Int("products", n))
	}

	checks := map[string]healthgrpc.Pinger{"catalog": products}

	// Cart store
	var repo repository.CartRepository
	switch cfg.CartStore {
	case config.CartStoreMongo:
		mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		defer func() {
			if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
				log.Warn("mongo disconnect failed", zap.Error(err))
			}
		}()
		repo = repository.NewMongoRepository(mongoDB)
		log.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))
	default:
		repo = repository.NewMemoryRepository()
		log.Warn("using in-memory cart store, cart is lost on restart")
	}
	checks["cart_store"] = repo

	// Cache
	var cartCache cache.CartCache = cache.NopCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		cartCache = cache.NewRedisCache(redisClient)
		checks["redis"] = healthgrpc.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		log.Info("redis cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	svc := service.NewCartService(repo, cartCache, products, service.Options{
		LockTimeout:   cfg.CartLockTimeout,
		ReceiptOutbox: cfg.PublishingEnabled(),
		Logger:        log,
	})

	if cfg.PublishingEnabled() {
		writer := publisher.NewKafkaWriter(cfg.CheckoutTopic, cfg.KafkaBrokers...)
		poller := publisher.NewOutboxPoller(svc, writer, log)
		go poller.Run(ctx)
		log.Info("checkout publishing enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.CheckoutTopic))
	}

	// Health
	healthServer := health.NewServer()
	monitor := healthgrpc.NewHealthMonitor(healthServer, checks, log)
	go monitor.Run(ctx)

	grpcServer := healthgrpc.NewServer(healthServer)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("gRPC health listening", zap.String("port", cfg.GRPCHealthPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Cart:               svc,
		Catalog:            products,
		Health:             monitor.Check,
		Logger:             log,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		CORSOrigins:        cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("HTTP API listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
		log.Error("server failed", zap.Error(serveErr))
	}
	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown did not complete", zap.Error(err))
	}
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	log.Info("storefront stopped")
	return serveErr
}
