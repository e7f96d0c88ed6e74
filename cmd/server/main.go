// cmd/server/main.go
// Entry point for the match-play scoring API server.
// The cmd/ folder holds executable binaries; internal/ holds the packages they are built from.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/trentd187/matchplay/internal/config"
	"github.com/trentd187/matchplay/internal/database"
	"github.com/trentd187/matchplay/internal/engine"
	"github.com/trentd187/matchplay/internal/events"
	"github.com/trentd187/matchplay/internal/handlers"
	"github.com/trentd187/matchplay/internal/live"
	"github.com/trentd187/matchplay/internal/logger"
	"github.com/trentd187/matchplay/internal/middleware"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.IsDevelopment())

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsDevelopment(), log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Migrations live in migrations/ next to the binary's working directory.
	if err := database.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The hub streams updates to spectators; it stops (closing every stream) on shutdown.
	hub := live.NewHub()
	go hub.Run(ctx)

	publishers := events.Multi{hub}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("Invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			// Not fatal: the breaker keeps failed publishes cheap until Redis comes back.
			log.WithError(err).Warn("Redis unreachable at startup; match updates will retry through the circuit breaker")
		}
		cancel()

		publishers = append(publishers, events.NewRedisPublisher(client, events.RedisConfig{Stream: cfg.RedisStream}, log))
		log.WithField("stream", cfg.RedisStream).Info("Publishing match updates to Redis")
	}

	eng := engine.New(db,
		engine.WithHandicapPolicy(cfg.Handicap),
		engine.WithPublisher(publishers),
		engine.WithLogger(log),
	)

	app := fiber.New(fiber.Config{
		AppName: "Match Play Scoring API",
	})
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	app.Get("/health", handlers.HealthCheck(db))

	// Every /api/v1 route needs a verified bearer token; admin routes also check the role.
	api := app.Group("/api/v1", middleware.Auth([]byte(cfg.JWTSecret), log))
	handlers.RegisterRoutes(api, eng, hub, log)

	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
