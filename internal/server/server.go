package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"veritag/internal/artifact"
	"veritag/internal/chain"
	"veritag/internal/config"
	"veritag/internal/ledger"
	custommiddleware "veritag/internal/middleware"
	"veritag/internal/service"
	"veritag/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	store  *ledger.Store
}

// NewServer wires the ledger store, chain client and artifact generator into
// the HTTP API. redisClient may be nil; the verify endpoint then runs
// without a rate limit.
func NewServer(cfg *config.Config, logger *zap.Logger, store *ledger.Store, chainClient chain.Client, artifacts *artifact.QRGenerator, redisClient *redis.Client) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if chainClient.IsConnected() {
			w.Write([]byte(`{"status":"ok","chain":"connected"}`))
		} else {
			w.Write([]byte(`{"status":"ok","chain":"disconnected"}`))
		}
	})

	// Artifacts are cached locally only; serve them for dashboard downloads.
	router.Handle("/artifacts/*", http.StripPrefix("/artifacts/", http.FileServer(http.Dir(artifacts.Dir()))))

	// Initialize services
	productService := service.NewProductService(store, chainClient, artifacts, logger)
	verificationService := service.NewVerificationService(store, chainClient, logger)

	// Initialize handlers
	productHandler := transport.NewProductHandler(productService, verificationService, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Scan presentations are anonymous and write ledger state, so they get a
	// rate limit when Redis is available.
	var rateLimitMiddleware func(http.Handler) http.Handler
	if redisClient != nil {
		rateLimitMiddleware = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: 30,
			Window:            time.Minute,
			KeyPrefix:         "verify_rate_limit",
		}, logger)
	}

	// Register routes
	productHandler.RegisterRoutes(router, authMiddleware, rateLimitMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		store:  store,
	}

	return server
}

// Close flushes the local ledger and releases its durable medium.
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.Flush(ctx); err != nil {
		s.logger.Error("Failed to flush ledger on shutdown", zap.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close ledger medium", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
