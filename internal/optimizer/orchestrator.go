package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine runs two-stage squad optimization. It holds no state across
// invocations; every call receives a full pool snapshot and constraint
// configuration, so one Engine may serve concurrent requests.
type Engine struct {
	logger *logrus.Entry
}

// NewEngine creates an optimization engine.
func NewEngine() *Engine {
	return &Engine{
		logger: logrus.WithField("component", "optimizer"),
	}
}

// Optimize sequences roster selection then lineup selection and assembles
// the combined outcome: the roster, its active/reserve partition and the
// summary metrics. Stage 2 is never invoked when stage 1 fails, and no
// partial outcome is ever returned.
func (e *Engine) Optimize(ctx context.Context, pool *Pool, rosterCfg RosterConfig, lineupCfg LineupConfig) (*OptimizationOutcome, error) {
	start := time.Now()
	id := uuid.New().String()
	log := e.logger.WithField("optimization_id", id)

	if err := CheckLineupCompatibility(rosterCfg, lineupCfg); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"pool_size":   pool.Len(),
		"roster_size": rosterCfg.TargetSize,
		"lineup_size": lineupCfg.TargetSize,
		"budget":      rosterCfg.Budget,
	}).Info("Starting two-stage optimization")

	roster, err := e.SelectRoster(ctx, pool, rosterCfg)
	if err != nil {
		return nil, err
	}

	lineup, err := e.SelectLineup(ctx, roster, lineupCfg)
	if err != nil {
		// The compatibility check passed, so a lineup infeasibility at
		// this point is a defect in the engine, not a data outcome.
		var infeasible *InfeasibleError
		if errors.As(err, &infeasible) {
			return nil, &InternalInconsistencyError{
				Reason: fmt.Sprintf("lineup stage reported infeasible after the compatibility check passed: %s", infeasible.Reason),
			}
		}
		return nil, err
	}

	active, reserve := partitionRoster(roster, lineup)

	outcome := &OptimizationOutcome{
		ID:              id,
		Roster:          roster,
		Lineup:          lineup,
		Active:          active,
		Reserve:         reserve,
		TotalCost:       roster.TotalCost,
		BudgetRemaining: rosterCfg.Budget - roster.TotalCost,
		ActiveValue:     lineup.TotalValue,
		Elapsed:         time.Since(start),
		CreatedAt:       time.Now().UTC(),
	}

	log.WithFields(logrus.Fields{
		"total_cost":       outcome.TotalCost,
		"budget_remaining": outcome.BudgetRemaining,
		"active_value":     outcome.ActiveValue,
		"elapsed":          outcome.Elapsed.String(),
	}).Info("Optimization completed")

	return outcome, nil
}

// partitionRoster splits the roster into the active subset chosen at stage
// 2 and the remaining reserve, both in presentation order: category order
// first, then descending value, then id.
func partitionRoster(roster *RosterResult, lineup *LineupResult) ([]Entity, []Entity) {
	inLineup := make(map[int]bool, len(lineup.EntityIDs))
	for _, id := range lineup.EntityIDs {
		inLineup[id] = true
	}

	active := make([]Entity, 0, len(lineup.EntityIDs))
	reserve := make([]Entity, 0, len(roster.Entities)-len(lineup.EntityIDs))
	for _, ent := range roster.Entities {
		if inLineup[ent.ID] {
			active = append(active, ent)
		} else {
			reserve = append(reserve, ent)
		}
	}

	sortPresentation(active)
	sortPresentation(reserve)
	return active, reserve
}

func sortPresentation(entities []Entity) {
	sort.Slice(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if categoryOrder[a.Category] != categoryOrder[b.Category] {
			return categoryOrder[a.Category] < categoryOrder[b.Category]
		}
		if a.PredictedValue != b.PredictedValue {
			return a.PredictedValue > b.PredictedValue
		}
		return a.ID < b.ID
	})
}
