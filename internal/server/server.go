package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"caixa-pos/internal/config"
	custommiddleware "caixa-pos/internal/middleware"
	"caixa-pos/internal/repository"
	"caixa-pos/internal/service"
	"caixa-pos/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Sale creation limit per client. Reads are not limited.
const (
	saleRateLimit  = 30
	saleRateWindow = time.Minute
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Redis client backs the sale creation rate limiter
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize repositories
	ledger := repository.NewInventoryLedger()
	prices := repository.NewPriceResolver()
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db, ledger, prices)
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	// Initialize services
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT.Secret)
	productService := service.NewProductService(db, productRepo, ledger)
	saleService := service.NewSaleService(saleRepo)
	reportService := service.NewReportService(saleRepo)

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, logger)
	productHandler := transport.NewProductHandler(productService, logger)
	saleHandler := transport.NewSaleHandler(saleService, logger)
	reportHandler := transport.NewReportHandler(reportService, logger)

	// Shared middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	managerOnly := custommiddleware.RequireManager(logger)
	saleLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: saleRateLimit,
		Window:            saleRateWindow,
		KeyPrefix:         "ratelimit:sales",
	}, logger)

	// Register routes
	userHandler.RegisterRoutes(router, authMiddleware, managerOnly)
	productHandler.RegisterRoutes(router, authMiddleware, managerOnly)
	saleHandler.RegisterRoutes(router, authMiddleware, saleLimiter)
	reportHandler.RegisterRoutes(router, authMiddleware, managerOnly)

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
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
