package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/favipie/FPL-hacker/internal/models"
	"github.com/favipie/FPL-hacker/pkg/database"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Snapshots older than this many gameweeks behind the latest are purged
// by the daily cleanup.
const keepGameweeks = 5

// DataFetcherService runs the scheduled refresh cycle: bootstrap feed
// plus predictions on a fixed interval, with extra runs in the hours
// team news lands and a nightly cleanup of stale snapshots.
type DataFetcherService struct {
	db            *database.DB
	cache         *CacheService
	players       *PlayerService
	logger        *logrus.Logger
	cron          *cron.Cron
	mu            sync.Mutex
	isRunning     bool
	fetchInterval time.Duration
	lastFetch     time.Time
	lastError     string
}

// NewDataFetcherService creates a new data fetcher service
func NewDataFetcherService(
	db *database.DB,
	cache *CacheService,
	players *PlayerService,
	logger *logrus.Logger,
	fetchInterval time.Duration,
) *DataFetcherService {
	return &DataFetcherService{
		db:            db,
		cache:         cache,
		players:       players,
		logger:        logger,
		cron:          cron.New(),
		fetchInterval: fetchInterval,
	}
}

// Start begins the scheduled refreshing
func (s *DataFetcherService) Start(runInitialFetch bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("data fetcher is already running")
	}

	// Schedule regular updates
	schedule := fmt.Sprintf("@every %s", s.fetchInterval.String())
	_, err := s.cron.AddFunc(schedule, s.refreshPlayers)
	if err != nil {
		return fmt.Errorf("failed to schedule data fetcher: %w", err)
	}

	// Team news and price changes land in the hours before weekend
	// deadlines, so refresh hourly on Friday and Saturday mornings
	_, err = s.cron.AddFunc("0 8-12 * * 5,6", s.refreshPlayers)
	if err != nil {
		return fmt.Errorf("failed to schedule deadline fetcher: %w", err)
	}

	// Schedule daily cleanup
	_, err = s.cron.AddFunc("0 3 * * *", s.cleanupOldData) // 3 AM daily
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	if runInitialFetch {
		go s.refreshPlayers()
	}

	s.logger.Info("Data fetcher service started")
	return nil
}

// Stop halts the scheduled refreshing
func (s *DataFetcherService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Data fetcher service stopped")
}

// refreshPlayers runs one full refresh cycle
func (s *DataFetcherService) refreshPlayers() {
	s.logger.Info("Starting scheduled player refresh")

	summary, err := s.players.RefreshPlayers(context.Background())

	s.mu.Lock()
	s.lastFetch = time.Now().UTC()
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Errorf("Scheduled player refresh failed: %v", err)
		return
	}

	s.logger.Infof("Refreshed %d players for gameweek %d", summary.PlayersUpserted, summary.Gameweek)
}

// cleanupOldData removes snapshots from long-finished gameweeks
func (s *DataFetcherService) cleanupOldData() {
	s.logger.Info("Starting daily cleanup of old data")

	latest, err := s.players.LatestGameweek(context.Background())
	if err != nil {
		s.logger.Warnf("Skipping cleanup, no stored gameweeks: %v", err)
		return
	}

	cutoff := latest - keepGameweeks
	if cutoff <= 0 {
		return
	}

	result := s.db.DB.Where("gameweek < ?", cutoff).Delete(&models.Player{})
	if result.Error != nil {
		s.logger.Errorf("Failed to cleanup old players: %v", result.Error)
	} else {
		s.logger.Infof("Cleaned up %d old player records", result.RowsAffected)
	}

	// Stored outcomes stay queryable for a month
	cutoffDate := time.Now().AddDate(0, 0, -30)
	result = s.db.DB.Where("created_at < ?", cutoffDate).Delete(&models.OptimizationRecord{})
	if result.Error != nil {
		s.logger.Errorf("Failed to cleanup old optimizations: %v", result.Error)
	} else {
		s.logger.Infof("Cleaned up %d old optimization records", result.RowsAffected)
	}

	// Clear old cache entries
	s.cache.Flush()
}

// FetchOnDemand triggers a refresh outside the schedule
func (s *DataFetcherService) FetchOnDemand() error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()

	if !running {
		return fmt.Errorf("data fetcher is not running")
	}

	go s.refreshPlayers()
	return nil
}

// GetFetchStatus returns the current status of the fetcher
func (s *DataFetcherService) GetFetchStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}

	status := map[string]interface{}{
		"is_running":     s.isRunning,
		"fetch_interval": s.fetchInterval.String(),
		"next_runs":      nextRuns,
		"cron_jobs":      len(entries),
	}
	if !s.lastFetch.IsZero() {
		status["last_fetch"] = s.lastFetch
	}
	if s.lastError != "" {
		status["last_error"] = s.lastError
	}
	return status
}
