package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/favipie/FPL-hacker/internal/services"
	"github.com/favipie/FPL-hacker/pkg/utils"
	"github.com/gin-gonic/gin"
)

type PlayerHandler struct {
	players *services.PlayerService
	fetcher *services.DataFetcherService
}

func NewPlayerHandler(players *services.PlayerService, fetcher *services.DataFetcherService) *PlayerHandler {
	return &PlayerHandler{
		players: players,
		fetcher: fetcher,
	}
}

// GetPlayers lists stored players for a gameweek
func (h *PlayerHandler) GetPlayers(c *gin.Context) {
	gameweek, _ := strconv.Atoi(c.DefaultQuery("gameweek", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	minPoints, _ := strconv.ParseFloat(c.DefaultQuery("min_points", "0"), 64)

	query := services.PlayerQuery{
		Gameweek:      gameweek,
		Position:      c.Query("position"),
		Club:          c.Query("club"),
		OnlyAvailable: c.Query("only_available") == "true",
		MinPoints:     minPoints,
		Limit:         limit,
	}

	// Cost filter arrives in whole currency units
	if maxCost, err := strconv.ParseFloat(c.Query("max_cost"), 64); err == nil && maxCost > 0 {
		query.MaxCost = int(math.Round(maxCost * 10))
	}

	players, err := h.players.GetPlayers(c.Request.Context(), query)
	if err != nil {
		utils.SendError(c, http.StatusNotFound,
			utils.NewAppError(utils.ErrCodeNotFound, "No players found", err.Error()))
		return
	}

	utils.SendSuccessWithMeta(c, players, &utils.Meta{Total: int64(len(players))})
}

// GetSummary returns pool statistics for a gameweek
func (h *PlayerHandler) GetSummary(c *gin.Context) {
	gameweek, _ := strconv.Atoi(c.DefaultQuery("gameweek", "0"))
	topN, _ := strconv.Atoi(c.DefaultQuery("top", "10"))

	summary, err := h.players.Summary(c.Request.Context(), gameweek, topN)
	if err != nil {
		utils.SendError(c, http.StatusNotFound,
			utils.NewAppError(utils.ErrCodeNotFound, "No player data for summary", err.Error()))
		return
	}

	utils.SendSuccess(c, summary)
}

// RefreshPlayers pulls the feed and predictions and upserts the result
func (h *PlayerHandler) RefreshPlayers(c *gin.Context) {
	summary, err := h.players.RefreshPlayers(c.Request.Context())
	if err != nil {
		utils.SendError(c, http.StatusBadGateway,
			utils.NewAppError(utils.ErrCodeProvider, "Player refresh failed", err.Error()))
		return
	}

	utils.SendSuccess(c, summary)
}

// GetFetchStatus reports the scheduled fetcher's state
func (h *PlayerHandler) GetFetchStatus(c *gin.Context) {
	utils.SendSuccess(c, h.fetcher.GetFetchStatus())
}
