package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/favipie/FPL-hacker/internal/models"
	"github.com/favipie/FPL-hacker/internal/optimizer"
	"github.com/favipie/FPL-hacker/internal/providers"
	"github.com/favipie/FPL-hacker/pkg/database"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PlayerService merges the bootstrap feed with the prediction model's
// output, persists the result per gameweek and builds validated pools
// for the optimizer.
type PlayerService struct {
	db          *database.DB
	cache       *CacheService
	fpl         *providers.FPLClient
	predictions *providers.PredictionsProvider
	hub         *WebSocketHub
	logger      *logrus.Entry
	cacheTTL    time.Duration
}

func NewPlayerService(db *database.DB, cache *CacheService, fpl *providers.FPLClient, predictions *providers.PredictionsProvider, hub *WebSocketHub, cacheTTL time.Duration, logger *logrus.Logger) *PlayerService {
	return &PlayerService{
		db:          db,
		cache:       cache,
		fpl:         fpl,
		predictions: predictions,
		hub:         hub,
		logger:      logger.WithField("component", "player_service"),
		cacheTTL:    cacheTTL,
	}
}

// RefreshSummary reports one refresh run.
type RefreshSummary struct {
	Gameweek        int       `json:"gameweek"`
	ClubsUpserted   int       `json:"clubs_upserted"`
	PlayersUpserted int       `json:"players_upserted"`
	RowsSkipped     int       `json:"rows_skipped"`
	RefreshedAt     time.Time `json:"refreshed_at"`
}

// RefreshPlayers pulls the bootstrap feed and the predictions file,
// joins them on element id and upserts the merged rows for the current
// gameweek. Prediction rows without a matching feed element are treated
// as unavailable, mirroring how the model handles departed players.
func (s *PlayerService) RefreshPlayers(ctx context.Context) (*RefreshSummary, error) {
	bootstrap, err := s.fpl.GetBootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bootstrap feed: %w", err)
	}

	predictions, err := s.predictions.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}
	if len(predictions) == 0 {
		return nil, fmt.Errorf("predictions file contains no rows")
	}

	gameweek := bootstrap.CurrentGameweek

	elementsByID := make(map[int]providers.ElementData, len(bootstrap.Elements))
	for _, e := range bootstrap.Elements {
		elementsByID[e.ElementID] = e
	}

	clubsUpserted := 0
	for _, club := range bootstrap.Clubs {
		if err := s.upsertClub(ctx, club); err != nil {
			s.logger.WithFields(logrus.Fields{
				"club":  club.ShortName,
				"error": err.Error(),
			}).Error("Failed to upsert club")
			continue
		}
		clubsUpserted++
	}

	playersUpserted := 0
	rowsSkipped := 0
	for _, pred := range predictions {
		player, ok := s.mergePrediction(pred, elementsByID, bootstrap, gameweek)
		if !ok {
			rowsSkipped++
			continue
		}
		if err := s.upsertPlayer(ctx, player); err != nil {
			s.logger.WithFields(logrus.Fields{
				"element_id": player.ElementID,
				"name":       player.Name,
				"error":      err.Error(),
			}).Error("Failed to upsert player")
			rowsSkipped++
			continue
		}
		playersUpserted++
	}

	if err := s.cache.Delete(ctx, PlayersCacheKey(gameweek), SummaryCacheKey(gameweek)); err != nil && !errors.Is(err, ErrCacheUnavailable) {
		s.logger.WithField("error", err.Error()).Warn("Failed to invalidate player caches")
	}

	summary := &RefreshSummary{
		Gameweek:        gameweek,
		ClubsUpserted:   clubsUpserted,
		PlayersUpserted: playersUpserted,
		RowsSkipped:     rowsSkipped,
		RefreshedAt:     time.Now().UTC(),
	}

	if s.hub != nil {
		if err := s.hub.BroadcastToTopic(TopicPlayers, "players_refreshed", summary); err != nil {
			s.logger.WithField("error", err.Error()).Warn("Failed to broadcast refresh")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"gameweek": gameweek,
		"players":  playersUpserted,
		"skipped":  rowsSkipped,
	}).Info("Player refresh completed")

	return summary, nil
}

// mergePrediction joins one prediction row with its feed element. The
// prediction keeps the model's cost and attributes; availability and
// news always come from the live feed.
func (s *PlayerService) mergePrediction(pred providers.Prediction, elements map[int]providers.ElementData, bootstrap *providers.Bootstrap, gameweek int) (models.Player, bool) {
	position := providers.PositionFromElementType(pred.ElementType)
	if position == "" {
		s.logger.WithFields(logrus.Fields{
			"element_id":   pred.ElementID,
			"element_type": pred.ElementType,
		}).Warn("Skipping prediction with unknown element type")
		return models.Player{}, false
	}

	club, ok := bootstrap.ClubByID[pred.ClubID]
	if !ok {
		s.logger.WithFields(logrus.Fields{
			"element_id": pred.ElementID,
			"club_id":    pred.ClubID,
		}).Warn("Skipping prediction with unknown club")
		return models.Player{}, false
	}

	player := models.Player{
		ElementID:       pred.ElementID,
		Name:            pred.Name,
		Position:        position,
		Club:            club.ShortName,
		ClubID:          pred.ClubID,
		Cost:            pred.Cost,
		PredictedPoints: pred.PredictedPoints,
		Status:          optimizer.AvailabilityUnavailable,
		Gameweek:        gameweek,
	}

	if element, ok := elements[pred.ElementID]; ok {
		player.Status = element.Availability
		player.News = element.News
		if element.Name != "" {
			player.Name = element.Name
		}
		if element.Cost > 0 {
			player.Cost = element.Cost
		}
	}

	return player, true
}

func (s *PlayerService) upsertClub(ctx context.Context, club models.Club) error {
	var existing models.Club
	err := s.db.WithContext(ctx).Where("id = ?", club.ID).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return s.db.WithContext(ctx).Create(&club).Error
	}

	existing.Name = club.Name
	existing.ShortName = club.ShortName
	return s.db.WithContext(ctx).Save(&existing).Error
}

func (s *PlayerService) upsertPlayer(ctx context.Context, player models.Player) error {
	var existing models.Player
	err := s.db.WithContext(ctx).
		Where("element_id = ? AND gameweek = ?", player.ElementID, player.Gameweek).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return s.db.WithContext(ctx).Create(&player).Error
	}

	existing.Name = player.Name
	existing.Position = player.Position
	existing.Club = player.Club
	existing.ClubID = player.ClubID
	existing.Cost = player.Cost
	existing.PredictedPoints = player.PredictedPoints
	existing.Status = player.Status
	existing.News = player.News
	return s.db.WithContext(ctx).Save(&existing).Error
}

// PlayerQuery narrows a player listing.
type PlayerQuery struct {
	Gameweek      int
	Position      string
	Club          string
	MaxCost       int
	OnlyAvailable bool
	MinPoints     float64
	Limit         int
}

// GetPlayers lists players for a gameweek, most valuable first. The
// unfiltered listing is cached; filtered queries go straight to the
// database.
func (s *PlayerService) GetPlayers(ctx context.Context, query PlayerQuery) ([]models.Player, error) {
	gameweek := query.Gameweek
	if gameweek <= 0 {
		latest, err := s.LatestGameweek(ctx)
		if err != nil {
			return nil, err
		}
		gameweek = latest
	}

	unfiltered := query.Position == "" && query.Club == "" && query.MaxCost <= 0 &&
		!query.OnlyAvailable && query.MinPoints <= 0 && query.Limit <= 0

	if unfiltered {
		var cached []models.Player
		if err := s.cache.Get(ctx, PlayersCacheKey(gameweek), &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	db := s.db.WithContext(ctx).Where("gameweek = ?", gameweek)
	if query.Position != "" {
		db = db.Where("position = ?", query.Position)
	}
	if query.Club != "" {
		db = db.Where("club = ?", query.Club)
	}
	if query.MaxCost > 0 {
		db = db.Where("cost <= ?", query.MaxCost)
	}
	if query.OnlyAvailable {
		db = db.Where("status = ?", optimizer.AvailabilityAvailable)
	}
	if query.MinPoints > 0 {
		db = db.Where("predicted_points >= ?", query.MinPoints)
	}
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}

	var players []models.Player
	if err := db.Order("predicted_points DESC, element_id ASC").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}

	if unfiltered && len(players) > 0 {
		if err := s.cache.Set(ctx, PlayersCacheKey(gameweek), players, s.cacheTTL); err != nil && !errors.Is(err, ErrCacheUnavailable) {
			s.logger.WithField("error", err.Error()).Warn("Failed to cache players")
		}
	}

	return players, nil
}

// LatestGameweek returns the most recent gameweek with stored players.
func (s *PlayerService) LatestGameweek(ctx context.Context) (int, error) {
	var gameweek int
	err := s.db.WithContext(ctx).
		Model(&models.Player{}).
		Select("COALESCE(MAX(gameweek), 0)").
		Scan(&gameweek).Error
	if err != nil {
		return 0, fmt.Errorf("failed to resolve latest gameweek: %w", err)
	}
	if gameweek == 0 {
		return 0, fmt.Errorf("no player data stored yet")
	}
	return gameweek, nil
}

// PoolForGameweek builds a validated optimization pool from the stored
// players of one gameweek. The club enumeration comes from the clubs
// table so a stale short name surfaces as a validation defect instead
// of silently passing through.
func (s *PlayerService) PoolForGameweek(ctx context.Context, gameweek int, filters ...optimizer.FilterFunc) (*optimizer.Pool, error) {
	players, err := s.GetPlayers(ctx, PlayerQuery{Gameweek: gameweek})
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("no players stored for gameweek %d", gameweek)
	}

	var clubs []models.Club
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&clubs).Error; err != nil {
		return nil, fmt.Errorf("failed to load clubs: %w", err)
	}

	pool, err := optimizer.NewPool(models.EntitiesFrom(players), optimizer.DefaultCategories(), models.ClubCodes(clubs))
	if err != nil {
		return nil, err
	}
	return pool.Filter(filters...), nil
}

// Summary computes pool statistics for a gameweek, cached per gameweek.
func (s *PlayerService) Summary(ctx context.Context, gameweek int, topN int) (*optimizer.PoolSummary, error) {
	if gameweek <= 0 {
		latest, err := s.LatestGameweek(ctx)
		if err != nil {
			return nil, err
		}
		gameweek = latest
	}

	var cached optimizer.PoolSummary
	if err := s.cache.Get(ctx, SummaryCacheKey(gameweek), &cached); err == nil && cached.TotalEntities > 0 {
		return &cached, nil
	}

	pool, err := s.PoolForGameweek(ctx, gameweek)
	if err != nil {
		return nil, err
	}

	summary := optimizer.Summarize(pool, topN)
	if err := s.cache.Set(ctx, SummaryCacheKey(gameweek), summary, s.cacheTTL); err != nil && !errors.Is(err, ErrCacheUnavailable) {
		s.logger.WithField("error", err.Error()).Warn("Failed to cache summary")
	}

	return summary, nil
}
