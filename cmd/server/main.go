package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/favipie/FPL-hacker/internal/api"
	"github.com/favipie/FPL-hacker/internal/api/handlers"
	"github.com/favipie/FPL-hacker/internal/api/middleware"
	"github.com/favipie/FPL-hacker/internal/providers"
	"github.com/favipie/FPL-hacker/internal/services"
	"github.com/favipie/FPL-hacker/pkg/config"
	"github.com/favipie/FPL-hacker/pkg/database"
	"github.com/favipie/FPL-hacker/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	log := logger.InitLogger("", cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis. A dead cache degrades the service rather than
	// blocking startup; every cached path falls back to the database.
	var redisClient *redis.Client
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warnf("Invalid Redis URL, running without cache: %v", err)
	} else {
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warnf("Redis unreachable, running without cache: %v", err)
			redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Initialize services
	cacheService := services.NewCacheService(redisClient)
	webSocketHub := services.NewWebSocketHub()
	go webSocketHub.Run()

	breakers := services.NewCircuitBreakerService(cfg.CircuitBreakerThreshold, 30*time.Second, log)

	// Initialize data providers
	fplClient := providers.NewFPLClient(cfg.FPLBaseURL, cfg.FPLRateLimit, cacheService, breakers, log)
	predictionsProvider := providers.NewPredictionsProvider(cfg.PredictionsPath, log)

	playersCacheTTL := time.Duration(cfg.PlayersCacheExpiration) * time.Second
	outcomeCacheTTL := time.Duration(cfg.OutcomeCacheExpiration) * time.Second
	solveTimeout := time.Duration(cfg.OptimizationTimeout) * time.Second

	playerService := services.NewPlayerService(db, cacheService, fplClient, predictionsProvider, webSocketHub, playersCacheTTL, log)
	optimizationService := services.NewOptimizationService(db, cacheService, playerService, webSocketHub, solveTimeout, outcomeCacheTTL, log)

	// Parse fetch interval
	fetchInterval, err := time.ParseDuration(cfg.DataFetchInterval)
	if err != nil {
		log.Warnf("Invalid fetch interval, using default 2h: %v", err)
		fetchInterval = 2 * time.Hour
	}

	// Initialize data fetcher
	dataFetcher := services.NewDataFetcherService(db, cacheService, playerService, log, fetchInterval)
	if cfg.EnableBackgroundJobs {
		if err := dataFetcher.Start(!cfg.SkipInitialDataFetch); err != nil {
			log.Errorf("Failed to start data fetcher: %v", err)
		}
		defer dataFetcher.Stop()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorLogger(log))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Health endpoints at root level
	healthHandler := handlers.NewHealthHandler(db, cacheService)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, cfg, playerService, optimizationService, dataFetcher)

	// Setup WebSocket endpoint at root level (not under /api/v1)
	wsHandler := handlers.NewWebSocketHandler(webSocketHub)
	router.GET("/ws", middleware.OptionalAuth(cfg.JWTSecret), wsHandler.HandleWebSocket)

	// Log all registered routes
	log.Info("=== REGISTERED ROUTES ===")
	for _, route := range router.Routes() {
		log.Infof("%s %s", route.Method, route.Path)
	}
	log.Info("=========================")

	// The write timeout must outlive the solve deadline
	writeTimeout := solveTimeout + 15*time.Second

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
