package optimizer

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// SelectLineup solves stage 2: the active subset of a stage-1 roster
// maximizing total predicted value under the formation windows. The roster
// is a closed pool; no entity outside it can be chosen, and neither budget
// nor club constraints apply. Optimality and tie-break guarantees match
// SelectRoster.
func (e *Engine) SelectLineup(ctx context.Context, roster *RosterResult, cfg LineupConfig) (*LineupResult, error) {
	if roster == nil || len(roster.Entities) == 0 {
		return nil, &ConfigurationError{Stage: StageLineup, Reason: "roster result is empty"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, ent := range roster.Entities {
		counts[ent.Category]++
	}
	if err := checkCategoryCoverage(StageLineup, counts, cfg.CategoryBounds); err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"stage":       StageLineup,
		"roster_size": len(roster.Entities),
		"target_size": cfg.TargetSize,
	}).Info("Starting lineup selection")

	if reason := diagnoseLineupInfeasibility(counts, cfg); reason != "" {
		e.logger.WithFields(logrus.Fields{
			"stage":  StageLineup,
			"reason": reason,
		}).Info("Lineup selection structurally infeasible")
		return nil, &InfeasibleError{Stage: StageLineup, Reason: reason}
	}

	prob := &problem{
		stage:      StageLineup,
		entities:   roster.Entities,
		targetSize: cfg.TargetSize,
		budget:     -1,
		bounds:     cfg.CategoryBounds,
		maxPerClub: 0,
	}

	sol, stats, err := solve(ctx, prob, e.logger)
	if err != nil {
		return nil, err
	}
	if sol == nil {
		// The structural checks above exactly characterize feasibility for
		// a closed pool under category windows, so an empty search here
		// cannot be a legitimate outcome.
		return nil, &InternalInconsistencyError{
			Reason: fmt.Sprintf("lineup search found no selection although the roster composition admits one (roster %d, target %d)", len(roster.Entities), cfg.TargetSize),
		}
	}

	entities, value, cost := resolveRosterSelection(roster, sol.ids)
	result := &LineupResult{
		EntityIDs:  sol.ids,
		Entities:   entities,
		TotalValue: value,
		TotalCost:  cost,
	}

	e.logger.WithFields(logrus.Fields{
		"stage":       StageLineup,
		"total_value": result.TotalValue,
		"total_cost":  result.TotalCost,
		"nodes":       stats.nodes,
		"elapsed":     stats.elapsed.String(),
	}).Info("Lineup selection completed")

	return result, nil
}

// diagnoseLineupInfeasibility checks the closed-pool feasibility
// conditions: every category minimum covered by the roster's supply and
// enough usable entities under the maximums to reach the target. For a
// category-window selection over a closed pool these conditions are exact,
// not merely advisory.
func diagnoseLineupInfeasibility(counts map[string]int, cfg LineupConfig) string {
	for _, cat := range sortedCategories(cfg.CategoryBounds) {
		b := cfg.CategoryBounds[cat]
		if counts[cat] < b.Min {
			return fmt.Sprintf("category %s requires at least %d starters, roster has %d", cat, b.Min, counts[cat])
		}
	}
	usable := 0
	for cat, b := range cfg.CategoryBounds {
		usable += minInt(counts[cat], b.Max)
	}
	if usable < cfg.TargetSize {
		return fmt.Sprintf("formation maximums cap usable starters at %d, lineup needs %d", usable, cfg.TargetSize)
	}
	return ""
}

// resolveRosterSelection maps an ascending id list back onto roster
// entities, recomputing totals in canonical order.
func resolveRosterSelection(roster *RosterResult, ids []int) ([]Entity, float64, int) {
	byID := make(map[int]Entity, len(roster.Entities))
	for _, ent := range roster.Entities {
		byID[ent.ID] = ent
	}
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)

	entities := make([]Entity, 0, len(sorted))
	value := 0.0
	cost := 0
	for _, id := range sorted {
		ent, ok := byID[id]
		if !ok {
			continue
		}
		entities = append(entities, ent)
		value += ent.PredictedValue
		cost += ent.Cost
	}
	return entities, value, cost
}
