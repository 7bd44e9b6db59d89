package api

import (
	"github.com/favipie/FPL-hacker/internal/api/handlers"
	"github.com/favipie/FPL-hacker/internal/api/middleware"
	"github.com/favipie/FPL-hacker/internal/services"
	"github.com/favipie/FPL-hacker/pkg/config"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, cfg *config.Config, players *services.PlayerService, optimizations *services.OptimizationService, fetcher *services.DataFetcherService) {
	// Initialize handlers
	playerHandler := handlers.NewPlayerHandler(players, fetcher)
	optimizerHandler := handlers.NewOptimizerHandler(optimizations, cfg)

	// Player endpoints
	group.GET("/players", playerHandler.GetPlayers)
	group.GET("/players/summary", playerHandler.GetSummary)
	group.GET("/players/status", playerHandler.GetFetchStatus)

	// Optimization endpoints
	group.POST("/optimize", optimizerHandler.Optimize)
	group.GET("/optimizations", optimizerHandler.ListOptimizations)
	group.GET("/optimizations/:id", optimizerHandler.GetOptimization)
	group.GET("/constraints", optimizerHandler.GetConstraints)

	// Mutating routes require a token
	auth := group.Group("")
	auth.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		auth.POST("/players/refresh", playerHandler.RefreshPlayers)
	}
}
