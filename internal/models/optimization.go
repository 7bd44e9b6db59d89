package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/favipie/FPL-hacker/internal/optimizer"
	"gorm.io/datatypes"
)

// OptimizationRecord persists one completed optimization run: the request
// that produced it and the full outcome, both as JSON documents, plus the
// summary columns used for listing and lookup.
type OptimizationRecord struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	Gameweek        int            `gorm:"index" json:"gameweek"`
	Budget          int            `gorm:"not null" json:"budget"`
	TotalCost       int            `gorm:"not null" json:"total_cost"`
	BudgetRemaining int            `gorm:"not null" json:"budget_remaining"`
	ActiveValue     float64        `gorm:"not null" json:"active_value"`
	PoolSize        int            `json:"pool_size"`
	Request         datatypes.JSON `json:"request"`
	Outcome         datatypes.JSON `json:"outcome"`
	ElapsedMs       int64          `json:"elapsed_ms"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (OptimizationRecord) TableName() string {
	return "optimizations"
}

// NewOptimizationRecord flattens an engine outcome into its persisted form.
func NewOptimizationRecord(outcome *optimizer.OptimizationOutcome, gameweek, poolSize int, budget int, request interface{}) (*OptimizationRecord, error) {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outcome: %w", err)
	}
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	return &OptimizationRecord{
		ID:              outcome.ID,
		Gameweek:        gameweek,
		Budget:          budget,
		TotalCost:       outcome.TotalCost,
		BudgetRemaining: outcome.BudgetRemaining,
		ActiveValue:     outcome.ActiveValue,
		PoolSize:        poolSize,
		Request:         datatypes.JSON(requestJSON),
		Outcome:         datatypes.JSON(outcomeJSON),
		ElapsedMs:       outcome.Elapsed.Milliseconds(),
		CreatedAt:       outcome.CreatedAt,
	}, nil
}

// DecodeOutcome unmarshals the stored outcome document.
func (r *OptimizationRecord) DecodeOutcome() (*optimizer.OptimizationOutcome, error) {
	var outcome optimizer.OptimizationOutcome
	if err := json.Unmarshal(r.Outcome, &outcome); err != nil {
		return nil, fmt.Errorf("failed to decode stored outcome %s: %w", r.ID, err)
	}
	return &outcome, nil
}
