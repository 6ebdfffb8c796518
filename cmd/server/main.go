package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agency_messaging/internal/config"
	"agency_messaging/internal/handler"
	"agency_messaging/internal/jobs"
	"agency_messaging/internal/middleware"
	"agency_messaging/internal/realtime"
	"agency_messaging/internal/repository"
	"agency_messaging/internal/service"
	"agency_messaging/internal/storage"
	"agency_messaging/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	// Подключение к PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Invalid database DSN", "error", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.Database.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	// Подключение к Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	// Брокер realtime-событий
	var broker realtime.Broker
	switch cfg.Realtime.Backend {
	case config.RealtimeMemory:
		broker = realtime.NewMemoryBroker(appLogger)
		appLogger.Warn("Using in-memory realtime broker, events are not shared between instances")
	default:
		broker = realtime.NewRedisBroker(rdb, cfg.Realtime.ChannelPrefix, appLogger)
	}
	defer broker.Close()

	// Хранилище вложений
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		appLogger.Fatal("Failed to create storage dir", "dir", cfg.Storage.Dir, "error", err)
	}
	store := storage.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.PublicURL)

	repos := repository.NewRepositories(dbPool, rdb, cfg.Presence.TTL, appLogger)
	services := service.NewServices(repos, broker, store, cfg, appLogger)

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	if err := services.Inbox.Start(appCtx); err != nil {
		appLogger.Fatal("Failed to start inbox index", "error", err)
	}

	// Фоновые задачи
	scheduler := jobs.NewScheduler(appLogger)
	if err := scheduler.Add("presence-sweeper", cfg.Presence.SweepSchedule, jobs.PresenceSweeper(services.Presence.Sweep)); err != nil {
		appLogger.Fatal("Failed to schedule presence sweeper", "error", err)
	}
	scheduler.Start()

	hub := realtime.NewHub(broker, appLogger)
	defer hub.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.AccessSecret, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	checks := map[string]handler.CheckFunc{
		"postgres": dbPool.Ping,
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
	handlers := handler.NewHandlers(services, hub, checks, cfg, appLogger)

	router := handler.NewRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}
	scheduler.Stop(ctx)
	stopApp()

	appLogger.Info("Server exited")
}
