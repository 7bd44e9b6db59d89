package optimizer

import (
	"time"
)

// Position categories recognized by the standard game rules.
const (
	CategoryGoalkeeper = "GK"
	CategoryDefender   = "DEF"
	CategoryMidfielder = "MID"
	CategoryForward    = "FWD"
)

// Availability states for an entity. Providers map the upstream status
// codes onto these three values before the pool is built.
const (
	AvailabilityAvailable   = "available"
	AvailabilityUnavailable = "unavailable"
	AvailabilityUncertain   = "uncertain"
)

// Entity is one selectable candidate. Cost is in fixed-point tenths of a
// currency unit (a 5.5m player has Cost 55), matching the upstream feed.
type Entity struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Club           string  `json:"club"`
	Cost           int     `json:"cost"`
	PredictedValue float64 `json:"predicted_value"`
	Availability   string  `json:"availability"`
}

// CategoryBound is an inclusive (min,max) count window for one category.
type CategoryBound struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// RosterConfig declares the stage-1 selection rules: fixed roster size,
// budget ceiling (inclusive, raw tenths), per-category count windows and a
// per-club cap.
type RosterConfig struct {
	TargetSize     int                      `json:"target_size"`
	Budget         int                      `json:"budget"`
	CategoryBounds map[string]CategoryBound `json:"category_bounds"`
	MaxPerClub     int                      `json:"max_per_club"`
}

// LineupConfig declares the stage-2 selection rules: active size and the
// formation windows. No budget or club constraints apply at this stage.
type LineupConfig struct {
	TargetSize     int                      `json:"target_size"`
	CategoryBounds map[string]CategoryBound `json:"category_bounds"`
}

// RosterResult is the stage-1 outcome: the chosen entity ids (ascending),
// the resolved entities, and the achieved totals.
type RosterResult struct {
	EntityIDs  []int    `json:"entity_ids"`
	Entities   []Entity `json:"entities"`
	TotalValue float64  `json:"total_value"`
	TotalCost  int      `json:"total_cost"`
}

// LineupResult is the stage-2 outcome over the roster's closed pool.
type LineupResult struct {
	EntityIDs  []int    `json:"entity_ids"`
	Entities   []Entity `json:"entities"`
	TotalValue float64  `json:"total_value"`
	TotalCost  int      `json:"total_cost"`
}

// OptimizationOutcome is the atomic result of a full two-stage run: the
// roster, its active/reserve partition and the summary metrics. It is
// assembled only when both stages succeed.
type OptimizationOutcome struct {
	ID              string        `json:"id"`
	Roster          *RosterResult `json:"roster"`
	Lineup          *LineupResult `json:"lineup"`
	Active          []Entity      `json:"active"`
	Reserve         []Entity      `json:"reserve"`
	TotalCost       int           `json:"total_cost"`
	BudgetRemaining int           `json:"budget_remaining"`
	ActiveValue     float64       `json:"active_value"`
	Elapsed         time.Duration `json:"elapsed"`
	CreatedAt       time.Time     `json:"created_at"`
}

// DefaultCategories returns the standard category enumeration.
func DefaultCategories() []string {
	return []string{CategoryGoalkeeper, CategoryDefender, CategoryMidfielder, CategoryForward}
}

// DefaultRosterConfig returns the standard 15-man squad rules: 2 GK, 5 DEF,
// 5 MID, 3 FWD, at most 3 per club, 100.0m budget.
func DefaultRosterConfig() RosterConfig {
	return RosterConfig{
		TargetSize: 15,
		Budget:     1000,
		CategoryBounds: map[string]CategoryBound{
			CategoryGoalkeeper: {Min: 2, Max: 2},
			CategoryDefender:   {Min: 5, Max: 5},
			CategoryMidfielder: {Min: 5, Max: 5},
			CategoryForward:    {Min: 3, Max: 3},
		},
		MaxPerClub: 3,
	}
}

// DefaultLineupConfig returns the standard starting-11 formation rules:
// exactly 1 GK, 3-5 DEF, 3-5 MID, 1-3 FWD.
func DefaultLineupConfig() LineupConfig {
	return LineupConfig{
		TargetSize: 11,
		CategoryBounds: map[string]CategoryBound{
			CategoryGoalkeeper: {Min: 1, Max: 1},
			CategoryDefender:   {Min: 3, Max: 5},
			CategoryMidfielder: {Min: 3, Max: 5},
			CategoryForward:    {Min: 1, Max: 3},
		},
	}
}

// categoryOrder gives the presentation ordering used when partitioning a
// roster into active and reserve slices.
var categoryOrder = map[string]int{
	CategoryGoalkeeper: 0,
	CategoryDefender:   1,
	CategoryMidfielder: 2,
	CategoryForward:    3,
}
