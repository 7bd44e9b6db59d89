package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/favipie/FPL-hacker/internal/models"
	"github.com/favipie/FPL-hacker/internal/optimizer"
	"github.com/favipie/FPL-hacker/pkg/database"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrOutcomeNotFound = errors.New("optimization outcome not found")

// OptimizationRequest carries the caller's overrides on top of the
// standard squad rules. Budget is in whole currency units (100.0 means
// a 100.0m budget); zero values fall back to the defaults.
type OptimizationRequest struct {
	Gameweek     int                                `json:"gameweek"`
	Budget       float64                            `json:"budget" binding:"omitempty,gt=0"`
	MaxPerClub   int                                `json:"max_per_club" binding:"omitempty,gt=0"`
	RosterSize   int                                `json:"roster_size" binding:"omitempty,gt=0"`
	LineupSize   int                                `json:"lineup_size" binding:"omitempty,gt=0"`
	RosterBounds map[string]optimizer.CategoryBound `json:"roster_bounds,omitempty"`
	LineupBounds map[string]optimizer.CategoryBound `json:"lineup_bounds,omitempty"`
	Filters      OptimizationFilters                `json:"filters"`
}

// OptimizationFilters narrow the candidate pool before solving. The
// solver never sees unavailable entities; doubtful ones are excluded
// too unless IncludeUncertain is set.
type OptimizationFilters struct {
	Positions        []string `json:"positions,omitempty"`
	Clubs            []string `json:"clubs,omitempty"`
	MaxCost          float64  `json:"max_cost,omitempty"`
	MinPoints        float64  `json:"min_points,omitempty"`
	IncludeUncertain bool     `json:"include_uncertain,omitempty"`
}

// OptimizationResult is the service-level envelope around an engine
// outcome.
type OptimizationResult struct {
	Outcome   *optimizer.OptimizationOutcome `json:"outcome"`
	Gameweek  int                            `json:"gameweek"`
	PoolSize  int                            `json:"pool_size"`
	Budget    float64                        `json:"budget"`
	FromCache bool                           `json:"from_cache"`
}

// OptimizationService runs the two-stage engine over stored player
// pools, replays identical requests from cache and persists every fresh
// outcome.
type OptimizationService struct {
	db       *database.DB
	cache    *CacheService
	players  *PlayerService
	hub      *WebSocketHub
	engine   *optimizer.Engine
	logger   *logrus.Entry
	timeout  time.Duration
	cacheTTL time.Duration
}

func NewOptimizationService(db *database.DB, cache *CacheService, players *PlayerService, hub *WebSocketHub, timeout, cacheTTL time.Duration, logger *logrus.Logger) *OptimizationService {
	return &OptimizationService{
		db:       db,
		cache:    cache,
		players:  players,
		hub:      hub,
		engine:   optimizer.NewEngine(),
		logger:   logger.WithField("component", "optimization_service"),
		timeout:  timeout,
		cacheTTL: cacheTTL,
	}
}

// Run resolves the request against the stored pool and solves it under
// the configured deadline. Identical requests within the cache window
// replay the stored outcome without solving again.
func (s *OptimizationService) Run(ctx context.Context, req OptimizationRequest) (*OptimizationResult, error) {
	gameweek := req.Gameweek
	if gameweek <= 0 {
		latest, err := s.players.LatestGameweek(ctx)
		if err != nil {
			return nil, err
		}
		gameweek = latest
	}
	req.Gameweek = gameweek

	rosterCfg, lineupCfg := s.resolveConfigs(req)

	digest := requestDigest(req)
	replayKey := RequestCacheKey(gameweek, digest)

	var cached OptimizationResult
	if err := s.cache.Get(ctx, replayKey, &cached); err == nil && cached.Outcome != nil && cached.Outcome.ID != "" {
		s.logger.WithFields(logrus.Fields{
			"optimization_id": cached.Outcome.ID,
			"gameweek":        gameweek,
		}).Info("Replaying cached optimization outcome")
		cached.FromCache = true
		return &cached, nil
	}

	pool, err := s.players.PoolForGameweek(ctx, gameweek, s.poolFilters(req.Filters)...)
	if err != nil {
		return nil, err
	}

	s.broadcast("optimization_started", map[string]interface{}{
		"gameweek":  gameweek,
		"budget":    float64(rosterCfg.Budget) / 10.0,
		"pool_size": pool.Len(),
	})

	solveCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcome, err := s.engine.Optimize(solveCtx, pool, rosterCfg, lineupCfg)
	if err != nil {
		s.broadcast("optimization_failed", map[string]interface{}{
			"gameweek": gameweek,
			"error":    err.Error(),
		})
		return nil, err
	}

	s.persistOutcome(ctx, outcome, req, gameweek, pool.Len(), rosterCfg.Budget)

	result := &OptimizationResult{
		Outcome:  outcome,
		Gameweek: gameweek,
		PoolSize: pool.Len(),
		Budget:   float64(rosterCfg.Budget) / 10.0,
	}

	if err := s.cache.SetWithRetry(ctx, replayKey, result, s.cacheTTL, 3); err != nil && !errors.Is(err, ErrCacheUnavailable) {
		s.logger.WithField("error", err.Error()).Warn("Failed to cache outcome for replay")
	}
	if err := s.cache.SetWithRetry(ctx, OptimizationCacheKey(outcome.ID), outcome, s.cacheTTL, 3); err != nil && !errors.Is(err, ErrCacheUnavailable) {
		s.logger.WithField("error", err.Error()).Warn("Failed to cache outcome by id")
	}

	s.broadcast("optimization_completed", map[string]interface{}{
		"optimization_id": outcome.ID,
		"gameweek":        gameweek,
		"total_cost":      outcome.TotalCost,
		"active_value":    outcome.ActiveValue,
	})

	return result, nil
}

// GetOutcome loads a stored outcome by id, cache first.
func (s *OptimizationService) GetOutcome(ctx context.Context, id string) (*optimizer.OptimizationOutcome, error) {
	var cached optimizer.OptimizationOutcome
	if err := s.cache.Get(ctx, OptimizationCacheKey(id), &cached); err == nil && cached.ID != "" {
		return &cached, nil
	}

	var record models.OptimizationRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOutcomeNotFound
		}
		return nil, fmt.Errorf("failed to load optimization: %w", err)
	}

	outcome, err := record.DecodeOutcome()
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored outcome: %w", err)
	}

	if err := s.cache.Set(ctx, OptimizationCacheKey(id), outcome, s.cacheTTL); err != nil && !errors.Is(err, ErrCacheUnavailable) {
		s.logger.WithField("error", err.Error()).Warn("Failed to cache outcome by id")
	}

	return outcome, nil
}

// ListOutcomes returns stored outcome summaries for a gameweek, newest
// first.
func (s *OptimizationService) ListOutcomes(ctx context.Context, gameweek, limit int) ([]models.OptimizationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	db := s.db.WithContext(ctx).Model(&models.OptimizationRecord{})
	if gameweek > 0 {
		db = db.Where("gameweek = ?", gameweek)
	}

	var records []models.OptimizationRecord
	if err := db.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list optimizations: %w", err)
	}
	return records, nil
}

// resolveConfigs maps the request onto engine configs, starting from the
// standard rules. The budget converts from whole units to raw tenths
// with round-to-nearest so 100.0 becomes 1000.
func (s *OptimizationService) resolveConfigs(req OptimizationRequest) (optimizer.RosterConfig, optimizer.LineupConfig) {
	rosterCfg := optimizer.DefaultRosterConfig()
	lineupCfg := optimizer.DefaultLineupConfig()

	if req.Budget > 0 {
		rosterCfg.Budget = int(math.Round(req.Budget * 10))
	}
	if req.MaxPerClub > 0 {
		rosterCfg.MaxPerClub = req.MaxPerClub
	}
	if req.RosterSize > 0 {
		rosterCfg.TargetSize = req.RosterSize
	}
	if req.LineupSize > 0 {
		lineupCfg.TargetSize = req.LineupSize
	}

	if len(req.RosterBounds) > 0 {
		bounds := make(map[string]optimizer.CategoryBound, len(rosterCfg.CategoryBounds))
		for cat, b := range rosterCfg.CategoryBounds {
			bounds[cat] = b
		}
		for cat, b := range req.RosterBounds {
			bounds[cat] = b
		}
		rosterCfg.CategoryBounds = bounds
	}
	if len(req.LineupBounds) > 0 {
		bounds := make(map[string]optimizer.CategoryBound, len(lineupCfg.CategoryBounds))
		for cat, b := range lineupCfg.CategoryBounds {
			bounds[cat] = b
		}
		for cat, b := range req.LineupBounds {
			bounds[cat] = b
		}
		lineupCfg.CategoryBounds = bounds
	}

	return rosterCfg, lineupCfg
}

func (s *OptimizationService) poolFilters(filters OptimizationFilters) []optimizer.FilterFunc {
	funcs := []optimizer.FilterFunc{}

	if filters.IncludeUncertain {
		funcs = append(funcs, func(e optimizer.Entity) bool {
			return e.Availability != optimizer.AvailabilityUnavailable
		})
	} else {
		funcs = append(funcs, optimizer.Available())
	}

	if len(filters.Positions) > 0 {
		funcs = append(funcs, optimizer.Categories(filters.Positions...))
	}
	if len(filters.Clubs) > 0 {
		funcs = append(funcs, optimizer.Clubs(filters.Clubs...))
	}
	if filters.MaxCost > 0 {
		funcs = append(funcs, optimizer.MaxCost(int(math.Round(filters.MaxCost*10))))
	}
	if filters.MinPoints > 0 {
		minPoints := filters.MinPoints
		funcs = append(funcs, func(e optimizer.Entity) bool {
			return e.PredictedValue >= minPoints
		})
	}

	return funcs
}

func (s *OptimizationService) persistOutcome(ctx context.Context, outcome *optimizer.OptimizationOutcome, req OptimizationRequest, gameweek, poolSize, budget int) {
	record, err := models.NewOptimizationRecord(outcome, gameweek, poolSize, budget, req)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"optimization_id": outcome.ID,
			"error":           err.Error(),
		}).Error("Failed to encode optimization record")
		return
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		s.logger.WithFields(logrus.Fields{
			"optimization_id": outcome.ID,
			"error":           err.Error(),
		}).Error("Failed to persist optimization record")
	}
}

func (s *OptimizationService) broadcast(messageType string, data interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.BroadcastToTopic(TopicOptimizations, messageType, data); err != nil {
		s.logger.WithField("error", err.Error()).Warn("Failed to broadcast optimization event")
	}
}

// requestDigest canonicalizes a request for replay keying. Requests that
// marshal identically solve identically, so the digest is taken over the
// JSON encoding.
func requestDigest(req OptimizationRequest) string {
	data, err := json.Marshal(req)
	if err != nil {
		return "unkeyed"
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// RequestCacheKey keys outcome replay by gameweek and request digest.
func RequestCacheKey(gameweek int, digest string) string {
	return fmt.Sprintf("optimization:req:%d:%s", gameweek, digest)
}
