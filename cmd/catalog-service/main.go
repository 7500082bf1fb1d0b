package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-catalog/internal/blob"
	"ms-catalog/internal/config"
	"ms-catalog/internal/events"
	eventdb "ms-catalog/internal/events/db"
	"ms-catalog/internal/events/event_api"
	"ms-catalog/internal/kafka"
	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
	"ms-catalog/internal/utils"
	"ms-catalog/internal/venues"
	venuedb "ms-catalog/internal/venues/db"
	"ms-catalog/internal/venues/venue_api"
)

func openDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	driver := cfg.Database.Driver
	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to %s (attempt %d/%d)", driver, i+1, maxRetries))
		switch driver {
		case "postgres":
			sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		default:
			sqldb, err = sql.Open("sqlite", cfg.Database.DSN)
		}
		if err == nil {
			err = sqldb.Ping()
		}
		if err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", driver, err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to %s after %d attempts: %v", driver, maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", driver))

	if driver == "postgres" {
		return bun.NewDB(sqldb, pgdialect.New())
	}
	return bun.NewDB(sqldb, sqlitedialect.New())
}

// ensureSQLiteSchema creates the catalog tables for the zero-setup sqlite
// path. Postgres deployments run cmd/migrate instead.
func ensureSQLiteSchema(ctx context.Context, bunDB *bun.DB, log *logger.Logger) {
	tables := []interface{}{(*models.Venue)(nil), (*models.Event)(nil)}
	for _, m := range tables {
		if _, err := bunDB.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to create table for %T: %v", m, err))
		}
	}
}

func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))
	return client
}

func requestLogging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.LogAPI(r.Method, r.URL.Path, "done", time.Since(start).String())
		})
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Catalog Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := openDatabase(cfg, log)
	defer bunDB.Close()

	if cfg.Database.Driver != "postgres" {
		ensureSQLiteSchema(ctx, bunDB, log)
	}

	redisClient := connectRedis(ctx, cfg, log)
	defer redisClient.Close()
	blobStore := blob.NewRedisStore(redisClient)

	venueService := venues.NewVenueService(&venuedb.DB{Bun: bunDB})
	venueService.Logger = log
	eventService := events.NewEventService(&eventdb.DB{Bun: bunDB})
	eventService.Logger = log

	if cfg.Kafka.Enabled {
		if !cfg.Kafka.MockMode {
			requiredTopics := []string{cfg.Kafka.Topics.VenuesChanged, cfg.Kafka.Topics.EventsChanged}
			if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
				log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
			}
		}
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		venueService.Publisher = producer
		eventService.Publisher = producer
		log.Info("KAFKA", "Catalog change feed enabled")
	}

	venueHandler := venue_api.NewHandler(venueService, log)
	eventHandler := event_api.NewHandler(eventService, blobStore, cfg, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(requestLogging(log))

	venueHandler.RegisterRoutes(r)
	log.Info("ROUTER", "Venue routes registered under /api/venues")
	eventHandler.RegisterRoutes(r)
	log.Info("ROUTER", "Event routes registered under /api/events")

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Catalog Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Catalog Service shutdown complete")
	}
}
