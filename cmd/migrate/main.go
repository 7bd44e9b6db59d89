package main

import (
	"fmt"
	"log"
	"os"

	"github.com/favipie/FPL-hacker/internal/models"
	"github.com/favipie/FPL-hacker/internal/optimizer"
	"github.com/favipie/FPL-hacker/pkg/config"
	"github.com/favipie/FPL-hacker/pkg/database"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	// Auto migrate all models
	if err := db.AutoMigrate(
		&models.Club{},
		&models.Player{},
		&models.OptimizationRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_players_position ON players(position)",
		"CREATE INDEX IF NOT EXISTS idx_players_club ON players(club)",
		"CREATE INDEX IF NOT EXISTS idx_players_cost ON players(cost)",
		"CREATE INDEX IF NOT EXISTS idx_players_status ON players(status)",
		"CREATE INDEX IF NOT EXISTS idx_players_predicted_points ON players(predicted_points DESC)",
		"CREATE INDEX IF NOT EXISTS idx_optimizations_created_at ON optimizations(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// Drop tables in reverse order to handle foreign key constraints
	tables := []string{
		"optimizations",
		"players",
		"clubs",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

func seedData(db *database.DB) error {
	clubs := []models.Club{
		{ID: 1, Name: "Arsenal", ShortName: "ARS"},
		{ID: 2, Name: "Aston Villa", ShortName: "AVL"},
		{ID: 3, Name: "Bournemouth", ShortName: "BOU"},
		{ID: 4, Name: "Brentford", ShortName: "BRE"},
		{ID: 5, Name: "Brighton", ShortName: "BHA"},
		{ID: 6, Name: "Burnley", ShortName: "BUR"},
		{ID: 7, Name: "Chelsea", ShortName: "CHE"},
		{ID: 8, Name: "Crystal Palace", ShortName: "CRY"},
		{ID: 9, Name: "Everton", ShortName: "EVE"},
		{ID: 10, Name: "Fulham", ShortName: "FUL"},
		{ID: 11, Name: "Leeds", ShortName: "LEE"},
		{ID: 12, Name: "Liverpool", ShortName: "LIV"},
		{ID: 13, Name: "Man City", ShortName: "MCI"},
		{ID: 14, Name: "Man Utd", ShortName: "MUN"},
		{ID: 15, Name: "Newcastle", ShortName: "NEW"},
		{ID: 16, Name: "Nott'm Forest", ShortName: "NFO"},
		{ID: 17, Name: "Sunderland", ShortName: "SUN"},
		{ID: 18, Name: "Spurs", ShortName: "TOT"},
		{ID: 19, Name: "West Ham", ShortName: "WHU"},
		{ID: 20, Name: "Wolves", ShortName: "WOL"},
	}

	if err := db.Create(&clubs).Error; err != nil {
		logrus.Warnf("Failed to seed clubs (may already exist): %v", err)
	}

	available := optimizer.AvailabilityAvailable
	gameweek := 1

	// A playable sample pool: enough depth in every position to solve
	// the default 15-man squad under the default budget
	players := []models.Player{
		// Goalkeepers
		{ElementID: 101, Name: "Raya", Position: "GK", Club: "ARS", ClubID: 1, Cost: 55, PredictedPoints: 4.6},
		{ElementID: 102, Name: "Pickford", Position: "GK", Club: "EVE", ClubID: 9, Cost: 50, PredictedPoints: 4.2},
		{ElementID: 103, Name: "Sels", Position: "GK", Club: "NFO", ClubID: 16, Cost: 46, PredictedPoints: 3.8},
		{ElementID: 104, Name: "Petrovic", Position: "GK", Club: "BOU", ClubID: 3, Cost: 45, PredictedPoints: 3.5},
		// Defenders
		{ElementID: 201, Name: "Gabriel", Position: "DEF", Club: "ARS", ClubID: 1, Cost: 62, PredictedPoints: 5.1},
		{ElementID: 202, Name: "Van Dijk", Position: "DEF", Club: "LIV", ClubID: 12, Cost: 60, PredictedPoints: 4.9},
		{ElementID: 203, Name: "Gvardiol", Position: "DEF", Club: "MCI", ClubID: 13, Cost: 60, PredictedPoints: 4.7},
		{ElementID: 204, Name: "Hall", Position: "DEF", Club: "NEW", ClubID: 15, Cost: 55, PredictedPoints: 4.4},
		{ElementID: 205, Name: "Milenkovic", Position: "DEF", Club: "NFO", ClubID: 16, Cost: 55, PredictedPoints: 4.3},
		{ElementID: 206, Name: "Senesi", Position: "DEF", Club: "BOU", ClubID: 3, Cost: 47, PredictedPoints: 3.9},
		{ElementID: 207, Name: "Andersen", Position: "DEF", Club: "FUL", ClubID: 10, Cost: 45, PredictedPoints: 3.6},
		{ElementID: 208, Name: "Rodon", Position: "DEF", Club: "LEE", ClubID: 11, Cost: 40, PredictedPoints: 3.2},
		{ElementID: 209, Name: "Tarkowski", Position: "DEF", Club: "EVE", ClubID: 9, Cost: 55, PredictedPoints: 4.0},
		{ElementID: 210, Name: "Aina", Position: "DEF", Club: "NFO", ClubID: 16, Cost: 50, PredictedPoints: 3.7},
		// Midfielders
		{ElementID: 301, Name: "M.Salah", Position: "MID", Club: "LIV", ClubID: 12, Cost: 145, PredictedPoints: 8.9},
		{ElementID: 302, Name: "Palmer", Position: "MID", Club: "CHE", ClubID: 7, Cost: 105, PredictedPoints: 7.4},
		{ElementID: 303, Name: "Saka", Position: "MID", Club: "ARS", ClubID: 1, Cost: 100, PredictedPoints: 7.1},
		{ElementID: 304, Name: "Foden", Position: "MID", Club: "MCI", ClubID: 13, Cost: 92, PredictedPoints: 6.3},
		{ElementID: 305, Name: "Mbeumo", Position: "MID", Club: "BRE", ClubID: 4, Cost: 80, PredictedPoints: 5.9},
		{ElementID: 306, Name: "Rogers", Position: "MID", Club: "AVL", ClubID: 2, Cost: 70, PredictedPoints: 5.2},
		{ElementID: 307, Name: "Semenyo", Position: "MID", Club: "BOU", ClubID: 3, Cost: 62, PredictedPoints: 4.8},
		{ElementID: 308, Name: "Ndiaye", Position: "MID", Club: "EVE", ClubID: 9, Cost: 56, PredictedPoints: 4.1},
		{ElementID: 309, Name: "Anderson", Position: "MID", Club: "NFO", ClubID: 16, Cost: 55, PredictedPoints: 3.9},
		{ElementID: 310, Name: "Garner", Position: "MID", Club: "EVE", ClubID: 9, Cost: 50, PredictedPoints: 3.4},
		// Forwards
		{ElementID: 401, Name: "Haaland", Position: "FWD", Club: "MCI", ClubID: 13, Cost: 150, PredictedPoints: 8.6},
		{ElementID: 402, Name: "Isak", Position: "FWD", Club: "NEW", ClubID: 15, Cost: 130, PredictedPoints: 7.8},
		{ElementID: 403, Name: "Watkins", Position: "FWD", Club: "AVL", ClubID: 2, Cost: 90, PredictedPoints: 6.1},
		{ElementID: 404, Name: "Wood", Position: "FWD", Club: "NFO", ClubID: 16, Cost: 70, PredictedPoints: 5.4},
		{ElementID: 405, Name: "Wissa", Position: "FWD", Club: "BRE", ClubID: 4, Cost: 62, PredictedPoints: 5.0},
		{ElementID: 406, Name: "Strand Larsen", Position: "FWD", Club: "WOL", ClubID: 20, Cost: 55, PredictedPoints: 4.5},
	}

	for i := range players {
		players[i].Status = available
		players[i].Gameweek = gameweek
	}

	if err := db.Create(&players).Error; err != nil {
		return fmt.Errorf("failed to create players: %w", err)
	}

	logrus.Infof("Seeded %d clubs and %d players for gameweek %d", len(clubs), len(players), gameweek)

	return nil
}
