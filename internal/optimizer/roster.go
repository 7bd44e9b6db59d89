package optimizer

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// SelectRoster solves stage 1: the fixed-size roster maximizing total
// predicted value under the budget ceiling, category windows and club cap.
// The returned selection is globally optimal over the feasible region and
// canonical under the tie-break ordering, or the call fails with a typed
// error.
func (e *Engine) SelectRoster(ctx context.Context, pool *Pool, cfg RosterConfig) (*RosterResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkCategoryCoverage(StageRoster, pool.CountByCategory(), cfg.CategoryBounds); err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"stage":        StageRoster,
		"pool_size":    pool.Len(),
		"target_size":  cfg.TargetSize,
		"budget":       cfg.Budget,
		"max_per_club": cfg.MaxPerClub,
	}).Info("Starting roster selection")

	if reason := diagnoseRosterInfeasibility(pool, cfg); reason != "" {
		e.logger.WithFields(logrus.Fields{
			"stage":  StageRoster,
			"reason": reason,
		}).Info("Roster selection structurally infeasible")
		return nil, &InfeasibleError{Stage: StageRoster, Reason: reason}
	}

	prob := &problem{
		stage:      StageRoster,
		entities:   pool.Entities(),
		targetSize: cfg.TargetSize,
		budget:     cfg.Budget,
		bounds:     cfg.CategoryBounds,
		maxPerClub: cfg.MaxPerClub,
	}

	sol, stats, err := solve(ctx, prob, e.logger)
	if err != nil {
		return nil, err
	}
	if sol == nil {
		return nil, &InfeasibleError{Stage: StageRoster, Reason: "no selection satisfies all constraints simultaneously"}
	}

	entities, value, cost := resolveSelection(pool, sol.ids)
	result := &RosterResult{
		EntityIDs:  sol.ids,
		Entities:   entities,
		TotalValue: value,
		TotalCost:  cost,
	}

	e.logger.WithFields(logrus.Fields{
		"stage":       StageRoster,
		"total_value": result.TotalValue,
		"total_cost":  result.TotalCost,
		"nodes":       stats.nodes,
		"elapsed":     stats.elapsed.String(),
	}).Info("Roster selection completed")

	return result, nil
}

// checkCategoryCoverage rejects a solve when the pool contains a category
// the configuration says nothing about. An unconstrained category would
// make the bound semantics ambiguous, so it is a configuration defect.
func checkCategoryCoverage(stage string, counts map[string]int, bounds map[string]CategoryBound) error {
	missing := make([]string, 0)
	for cat := range counts {
		if _, ok := bounds[cat]; !ok {
			missing = append(missing, cat)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ConfigurationError{
			Stage:  stage,
			Reason: fmt.Sprintf("no bound configured for pool category %v", missing),
		}
	}
	return nil
}

// diagnoseRosterInfeasibility runs the cheap structural checks that prove
// an empty feasible region before any search: category supply below the
// minimums, capped supply below the target size, club-capped supply below
// the target size, or a budget below the minimum achievable roster cost
// (computed against a relaxation that ignores the club cap, so it never
// overestimates). An empty reason means the search itself must decide.
func diagnoseRosterInfeasibility(pool *Pool, cfg RosterConfig) string {
	counts := pool.CountByCategory()

	for _, cat := range sortedCategories(cfg.CategoryBounds) {
		b := cfg.CategoryBounds[cat]
		if counts[cat] < b.Min {
			return fmt.Sprintf("category %s requires at least %d entities, pool has %d", cat, b.Min, counts[cat])
		}
	}

	usable := 0
	for cat, b := range cfg.CategoryBounds {
		usable += minInt(counts[cat], b.Max)
	}
	if usable < cfg.TargetSize {
		return fmt.Sprintf("category maximums cap the selectable pool at %d entities, roster needs %d", usable, cfg.TargetSize)
	}

	clubUsable := 0
	for _, n := range pool.CountByClub() {
		clubUsable += minInt(n, cfg.MaxPerClub)
	}
	if clubUsable < cfg.TargetSize {
		return fmt.Sprintf("club limit %d caps the selectable pool at %d entities, roster needs %d", cfg.MaxPerClub, clubUsable, cfg.TargetSize)
	}

	if minCost, ok := minQuotaCost(pool, cfg); ok && minCost > cfg.Budget {
		return fmt.Sprintf("budget %d is below the minimum achievable roster cost %d", cfg.Budget, minCost)
	}

	return ""
}

// minQuotaCost computes the exact minimum total cost of a roster honoring
// the category windows and target size while ignoring the club cap: the
// cheapest entities per category cover the minimums, then the cheapest
// remaining entities fill up to the target without breaching a maximum.
func minQuotaCost(pool *Pool, cfg RosterConfig) (int, bool) {
	costsByCat := make(map[string][]int)
	for _, e := range pool.Entities() {
		costsByCat[e.Category] = append(costsByCat[e.Category], e.Cost)
	}
	for _, costs := range costsByCat {
		sort.Ints(costs)
	}

	total := 0
	taken := make(map[string]int, len(cfg.CategoryBounds))
	filled := 0
	for cat, b := range cfg.CategoryBounds {
		costs := costsByCat[cat]
		if len(costs) < b.Min {
			return 0, false
		}
		for i := 0; i < b.Min; i++ {
			total += costs[i]
		}
		taken[cat] = b.Min
		filled += b.Min
	}

	type filler struct {
		cost int
		cat  string
	}
	var fillers []filler
	for cat, costs := range costsByCat {
		b, ok := cfg.CategoryBounds[cat]
		if !ok {
			continue
		}
		for i := taken[cat]; i < len(costs) && i < b.Max; i++ {
			fillers = append(fillers, filler{cost: costs[i], cat: cat})
		}
	}
	sort.Slice(fillers, func(i, j int) bool { return fillers[i].cost < fillers[j].cost })

	for _, f := range fillers {
		if filled == cfg.TargetSize {
			break
		}
		if taken[f.cat] < cfg.CategoryBounds[f.cat].Max {
			taken[f.cat]++
			total += f.cost
			filled++
		}
	}
	if filled < cfg.TargetSize {
		return 0, false
	}
	return total, true
}

// resolveSelection maps an ascending id list back onto pool entities and
// recomputes the totals in canonical order, so reported values are
// identical across runs regardless of the search path taken.
func resolveSelection(pool *Pool, ids []int) ([]Entity, float64, int) {
	entities := make([]Entity, 0, len(ids))
	value := 0.0
	cost := 0
	for _, id := range ids {
		e, ok := pool.Entity(id)
		if !ok {
			continue
		}
		entities = append(entities, e)
		value += e.PredictedValue
		cost += e.Cost
	}
	return entities, value, cost
}
