package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/favipie/FPL-hacker/internal/optimizer"
	"github.com/favipie/FPL-hacker/internal/services"
	"github.com/favipie/FPL-hacker/pkg/config"
	"github.com/favipie/FPL-hacker/pkg/utils"
	"github.com/gin-gonic/gin"
)

type OptimizerHandler struct {
	optimizations *services.OptimizationService
	config        *config.Config
}

func NewOptimizerHandler(optimizations *services.OptimizationService, cfg *config.Config) *OptimizerHandler {
	return &OptimizerHandler{
		optimizations: optimizations,
		config:        cfg,
	}
}

// Optimize solves a squad for the requested gameweek and constraints
func (h *OptimizerHandler) Optimize(c *gin.Context) {
	var req services.OptimizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.optimizations.Run(c.Request.Context(), req)
	if err != nil {
		sendEngineError(c, err)
		return
	}

	utils.SendSuccess(c, result)
}

// GetOptimization returns a stored outcome by id
func (h *OptimizerHandler) GetOptimization(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		utils.SendValidationError(c, "Missing optimization id", "")
		return
	}

	outcome, err := h.optimizations.GetOutcome(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrOutcomeNotFound) {
			utils.SendNotFound(c, "Optimization not found")
			return
		}
		utils.SendInternalError(c, "Failed to load optimization")
		return
	}

	utils.SendSuccess(c, outcome)
}

// ListOptimizations returns stored outcome summaries, newest first
func (h *OptimizerHandler) ListOptimizations(c *gin.Context) {
	gameweek, _ := strconv.Atoi(c.DefaultQuery("gameweek", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.optimizations.ListOutcomes(c.Request.Context(), gameweek, limit)
	if err != nil {
		utils.SendInternalError(c, "Failed to list optimizations")
		return
	}

	utils.SendSuccess(c, records)
}

// GetConstraints returns the standard squad and formation rules
func (h *OptimizerHandler) GetConstraints(c *gin.Context) {
	roster := optimizer.DefaultRosterConfig()
	lineup := optimizer.DefaultLineupConfig()

	utils.SendSuccess(c, gin.H{
		"roster": gin.H{
			"target_size":     roster.TargetSize,
			"budget":          float64(roster.Budget) / 10.0,
			"category_bounds": roster.CategoryBounds,
			"max_per_club":    roster.MaxPerClub,
		},
		"lineup": gin.H{
			"target_size":     lineup.TargetSize,
			"category_bounds": lineup.CategoryBounds,
		},
		"categories": optimizer.DefaultCategories(),
	})
}

// sendEngineError maps the engine's error taxonomy onto HTTP statuses:
// bad inputs and configs are the caller's fault, an empty feasible
// region is a valid negative outcome, a timeout is neither, and an
// internal inconsistency is ours.
func sendEngineError(c *gin.Context, err error) {
	var (
		validation   *optimizer.DataValidationError
		configErr    *optimizer.ConfigurationError
		infeasible   *optimizer.InfeasibleError
		timeout      *optimizer.TimeoutError
		inconsistent *optimizer.InternalInconsistencyError
	)

	switch {
	case errors.As(err, &validation):
		utils.SendError(c, http.StatusBadRequest,
			utils.NewAppError(utils.ErrCodeValidation, "Player pool failed validation", validation.Error()))
	case errors.As(err, &configErr):
		utils.SendError(c, http.StatusBadRequest,
			utils.NewAppError(utils.ErrCodeConfiguration, "Constraint configuration invalid", configErr.Error()))
	case errors.As(err, &infeasible):
		utils.SendError(c, http.StatusUnprocessableEntity,
			utils.NewAppError(utils.ErrCodeInfeasible, "No squad satisfies the constraints", infeasible.Error()))
	case errors.As(err, &timeout):
		utils.SendError(c, http.StatusRequestTimeout,
			utils.NewAppError(utils.ErrCodeTimeout, "Optimization timed out", timeout.Error()))
	case errors.As(err, &inconsistent):
		utils.SendError(c, http.StatusInternalServerError,
			utils.NewAppError(utils.ErrCodeInconsistent, "Optimization produced inconsistent stages", inconsistent.Error()))
	default:
		utils.SendError(c, http.StatusInternalServerError,
			utils.NewAppError(utils.ErrCodeInternal, "Optimization failed", err.Error()))
	}
}
