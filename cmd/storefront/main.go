package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaicgrove/storefront/internal/auth"
	"github.com/mosaicgrove/storefront/internal/cart"
	"github.com/mosaicgrove/storefront/internal/checkout"
	"github.com/mosaicgrove/storefront/internal/config"
	"github.com/mosaicgrove/storefront/internal/handoff"
	h "github.com/mosaicgrove/storefront/internal/http"
	"github.com/mosaicgrove/storefront/internal/repository"
	"github.com/mosaicgrove/storefront/pkg/circuitbreaker"
	"github.com/mosaicgrove/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New("storefront", cfg.LogLevel)
	slog.SetDefault(log)

	ctx := context.Background()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open cart repository", "store", cfg.RemoteStore, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	store, closeHandoff, err := openHandoff(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open checkout handoff store", "store", cfg.HandoffStore, "error", err)
		os.Exit(1)
	}
	defer closeHandoff()

	registry := cart.NewRegistry(func() *cart.Store {
		return cart.NewStore(repo, cart.Options{
			QueueSize:   cfg.SyncQueueSize,
			SyncTimeout: cfg.SyncTimeout,
			Logger:      log,
		})
	}, cfg.SessionIdleTTL)

	router := h.NewRouter(h.Deps{
		Registry:       registry,
		Pipeline:       checkout.NewPipeline(store, cfg.OrderDelay, log),
		Verifier:       auth.NewVerifier(cfg.JWTSecret, 0),
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodySize:    cfg.MaxRequestBodySize,
		SecureCookie:   cfg.SecureCookie,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort, "remote_store", cfg.RemoteStore, "handoff_store", cfg.HandoffStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	// drains the remote write queues of every live session
	registry.Close()

	log.Info("server exited")
}

// openRepository connects the configured remote cart store and wraps it in a
// circuit breaker. REMOTE_STORE=none runs memory-only.
func openRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.CartRepository, func(), error) {
	var (
		next    repository.CartRepository
		closeFn = func() {}
	)

	switch cfg.RemoteStore {
	case config.RemoteStoreNone:
		log.Warn("no remote cart store configured, carts are memory-only")
		return nil, closeFn, nil

	case config.RemoteStoreMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		mongoRepo := repository.NewMongoRepository(db)
		if err := mongoRepo.CreateIndexes(ctx); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, nil, err
		}
		log.Info("connected to MongoDB", "database", cfg.MongoDBName)
		next = mongoRepo
		closeFn = func() { _ = db.Client().Disconnect(context.Background()) }

	default:
		cred := &repository.Credentials{
			Host:              cfg.DBHost,
			Port:              cfg.DBPort,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			DBName:            cfg.DBName,
			MigrationsDirPath: cfg.MigrationsPath,
		}
		pgRepo, err := repository.NewPostgresRepository(ctx, cred)
		if err != nil {
			return nil, nil, err
		}
		if err := pgRepo.RunMigrations(cred); err != nil {
			_ = pgRepo.Close()
			return nil, nil, err
		}
		log.Info("connected to PostgreSQL", "host", cfg.DBHost, "database", cfg.DBName)
		next = pgRepo
		closeFn = func() { _ = pgRepo.Close() }
	}

	cb := circuitbreaker.New[any](circuitbreaker.Config{
		Name:   "cart-repository",
		Logger: log,
	})
	return repository.NewBreakerRepository(next, cb), closeFn, nil
}

func openHandoff(ctx context.Context, cfg *config.Config, log *slog.Logger) (handoff.Store, func(), error) {
	if cfg.HandoffStore == config.HandoffStoreMemory {
		log.Warn("checkout handoff kept in process memory")
		return handoff.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
	return handoff.NewRedisStore(client, cfg.HandoffTTL), func() { _ = client.Close() }, nil
}
