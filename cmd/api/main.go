package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"veritag/internal/artifact"
	"veritag/internal/chain"
	"veritag/internal/config"
	"veritag/internal/database"
	"veritag/internal/ledger"
	"veritag/internal/logger"
	"veritag/internal/server"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Flush the ledger and close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// openMedium selects the durable medium behind the local ledger store.
func openMedium(cfg *config.Config, log *zap.Logger) (ledger.BlobStore, error) {
	if cfg.Ledger.Backend == "postgres" {
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db, "migrations", log); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("Using PostgreSQL ledger medium", zap.String("host", cfg.Database.Host))
		return database.NewBlobStore(db), nil
	}

	log.Info("Using embedded bbolt ledger medium", zap.String("path", cfg.Ledger.BoltPath))
	return ledger.OpenBolt(cfg.Ledger.BoltPath)
}

func main() {
	// Load environment from .env when present
	godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting product authenticity ledger API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	// Open the durable medium and load the local ledger
	medium, err := openMedium(cfg, log)
	if err != nil {
		log.Fatal("Failed to open ledger medium", zap.Error(err))
	}

	store := ledger.NewStore(medium, log)
	if err := store.Load(context.Background()); err != nil {
		log.Fatal("Failed to load local ledger", zap.Error(err))
	}

	// Connect to the chain gateway when configured. A failed handshake is
	// not fatal: verification degrades to the local ledger, chain-mode
	// registration reports the missing session.
	chainClient := chain.NewHTTPClient(cfg.Chain.GatewayURL, cfg.Chain.APIKey, log)
	if cfg.Chain.GatewayURL != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := chainClient.Connect(connectCtx); err != nil {
			log.Warn("Chain gateway unavailable, running local-only", zap.Error(err))
		}
		cancel()
	} else {
		log.Info("No chain gateway configured, running local-only")
	}

	// Artifact generator
	artifacts, err := artifact.NewQRGenerator(cfg.Ledger.ArtifactDir)
	if err != nil {
		log.Fatal("Failed to prepare artifact directory", zap.Error(err))
	}

	// Optional Redis client for verify rate limiting
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// Create server
	srv := server.NewServer(cfg, log, store, chainClient, artifacts, redisClient)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
