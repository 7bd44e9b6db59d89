package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fplShapedPool builds a full-scale pool shaped like a real gameweek
// snapshot: 4 goalkeepers, 10 defenders, 10 midfielders, 6 forwards
// spread round-robin over 10 clubs, flat cost 60. The first slots of
// each category carry dominant values, so the optimal 15-man roster is
// known by construction and returned alongside the pool.
func fplShapedPool(t *testing.T) (*Pool, []int) {
	t.Helper()

	clubs := make([]string, 10)
	for i := range clubs {
		clubs[i] = fmt.Sprintf("C%02d", i+1)
	}

	shape := []struct {
		cat   string
		total int
		picks int
	}{
		{CategoryGoalkeeper, 4, 2},
		{CategoryDefender, 10, 5},
		{CategoryMidfielder, 10, 5},
		{CategoryForward, 6, 3},
	}

	var records []Entity
	var want []int
	id := 0
	for _, s := range shape {
		for i := 0; i < s.total; i++ {
			id++
			value := 1.0 + float64(id)*0.01
			if i < s.picks {
				value = 8.0 + float64(id)*0.01
				want = append(want, id)
			}
			records = append(records, Entity{
				ID:             id,
				Name:           fmt.Sprintf("Squad%02d", id),
				Category:       s.cat,
				Club:           clubs[(id-1)%10],
				Cost:           60,
				PredictedValue: value,
				Availability:   AvailabilityAvailable,
			})
		}
	}

	pool, err := NewPool(records, DefaultCategories(), clubs)
	require.NoError(t, err)
	sort.Ints(want)
	return pool, want
}

func TestSelectRoster_FullScaleDefaults(t *testing.T) {
	pool, want := fplShapedPool(t)
	engine := NewEngine()

	result, err := engine.SelectRoster(context.Background(), pool, DefaultRosterConfig())
	require.NoError(t, err)

	assert.Equal(t, want, result.EntityIDs)
	assert.Equal(t, 900, result.TotalCost)
	assert.Len(t, result.Entities, 15)

	byCategory := make(map[string]int)
	byClub := make(map[string]int)
	for _, e := range result.Entities {
		byCategory[e.Category]++
		byClub[e.Club]++
	}
	assert.Equal(t, 2, byCategory[CategoryGoalkeeper])
	assert.Equal(t, 5, byCategory[CategoryDefender])
	assert.Equal(t, 5, byCategory[CategoryMidfielder])
	assert.Equal(t, 3, byCategory[CategoryForward])
	for club, n := range byClub {
		assert.LessOrEqual(t, n, 3, "club %s over the limit", club)
	}
}

func TestSelectRoster_BudgetExactlyAtOptimum(t *testing.T) {
	pool, want := fplShapedPool(t)
	engine := NewEngine()

	cfg := DefaultRosterConfig()
	cfg.Budget = 900
	result, err := engine.SelectRoster(context.Background(), pool, cfg)
	require.NoError(t, err)
	assert.Equal(t, want, result.EntityIDs)
	assert.Equal(t, 900, result.TotalCost)

	// Every 15-man roster in this pool costs exactly 900, so one unit
	// less leaves nothing affordable and the diagnosis names the floor.
	cfg.Budget = 899
	_, err = engine.SelectRoster(context.Background(), pool, cfg)
	var inf *InfeasibleError
	require.ErrorAs(t, err, &inf)
	assert.Equal(t, StageRoster, inf.Stage)
	assert.Contains(t, inf.Reason, "minimum achievable roster cost 900")
}

func TestSelectRoster_InfeasibleDiagnoses(t *testing.T) {
	clubs := []string{"ARS", "CHE", "LIV", "TOT"}
	base := []Entity{
		{ID: 1, Name: "KeeperA", Category: CategoryGoalkeeper, Club: "ARS", Cost: 40, PredictedValue: 3.0, Availability: AvailabilityAvailable},
		{ID: 2, Name: "BackA", Category: CategoryDefender, Club: "CHE", Cost: 40, PredictedValue: 3.5, Availability: AvailabilityAvailable},
		{ID: 3, Name: "BackB", Category: CategoryDefender, Club: "LIV", Cost: 45, PredictedValue: 3.2, Availability: AvailabilityAvailable},
		{ID: 4, Name: "MidA", Category: CategoryMidfielder, Club: "TOT", Cost: 50, PredictedValue: 5.0, Availability: AvailabilityAvailable},
	}

	tests := []struct {
		name       string
		cfg        RosterConfig
		wantReason string
	}{
		{
			name: "category supply below minimum",
			cfg: RosterConfig{
				TargetSize: 4,
				Budget:     400,
				MaxPerClub: 2,
				CategoryBounds: map[string]CategoryBound{
					CategoryGoalkeeper: {Min: 2, Max: 2},
					CategoryDefender:   {Min: 1, Max: 2},
					CategoryMidfielder: {Min: 0, Max: 1},
				},
			},
			wantReason: "category GK requires at least 2 entities, pool has 1",
		},
		{
			name: "category maximums cap the pool",
			cfg: RosterConfig{
				TargetSize: 4,
				Budget:     400,
				MaxPerClub: 4,
				CategoryBounds: map[string]CategoryBound{
					CategoryGoalkeeper: {Min: 1, Max: 1},
					CategoryDefender:   {Min: 1, Max: 1},
					CategoryMidfielder: {Min: 1, Max: 2},
				},
			},
			wantReason: "category maximums cap the selectable pool at 3",
		},
		{
			name: "zero club limit rejected",
			cfg: RosterConfig{
				TargetSize: 4,
				Budget:     400,
				MaxPerClub: 0,
				CategoryBounds: map[string]CategoryBound{
					CategoryGoalkeeper: {Min: 1, Max: 1},
					CategoryDefender:   {Min: 1, Max: 2},
					CategoryMidfielder: {Min: 1, Max: 1},
				},
			},
			wantReason: "",
		},
		{
			name: "budget below minimum cost",
			cfg: RosterConfig{
				TargetSize: 3,
				Budget:     100,
				MaxPerClub: 2,
				CategoryBounds: map[string]CategoryBound{
					CategoryGoalkeeper: {Min: 1, Max: 1},
					CategoryDefender:   {Min: 1, Max: 2},
					CategoryMidfielder: {Min: 1, Max: 1},
				},
			},
			wantReason: "budget 100 is below the minimum achievable roster cost 130",
		},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewPool(base, DefaultCategories(), clubs)
			require.NoError(t, err)

			_, err = engine.SelectRoster(context.Background(), pool, tt.cfg)
			if tt.wantReason == "" {
				// MaxPerClub of zero is a configuration defect, not an
				// infeasibility.
				var cfgErr *ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				return
			}
			var inf *InfeasibleError
			require.ErrorAs(t, err, &inf)
			assert.Equal(t, StageRoster, inf.Stage)
			assert.Contains(t, inf.Reason, tt.wantReason)
		})
	}
}

func TestSelectRoster_ClubCapDiagnosis(t *testing.T) {
	// Six entities, all the same club: with a cap of 3 only three are
	// usable, so a five-man roster is diagnosed before any search.
	records := make([]Entity, 0, 6)
	for i := 0; i < 6; i++ {
		cat := CategoryDefender
		if i == 0 {
			cat = CategoryGoalkeeper
		}
		records = append(records, Entity{
			ID:             i + 1,
			Name:           fmt.Sprintf("OneClub%d", i+1),
			Category:       cat,
			Club:           "ARS",
			Cost:           40,
			PredictedValue: 2.0,
			Availability:   AvailabilityAvailable,
		})
	}
	pool, err := NewPool(records, DefaultCategories(), []string{"ARS"})
	require.NoError(t, err)

	engine := NewEngine()
	_, err = engine.SelectRoster(context.Background(), pool, RosterConfig{
		TargetSize: 5,
		Budget:     400,
		MaxPerClub: 3,
		CategoryBounds: map[string]CategoryBound{
			CategoryGoalkeeper: {Min: 1, Max: 1},
			CategoryDefender:   {Min: 4, Max: 5},
		},
	})

	var inf *InfeasibleError
	require.ErrorAs(t, err, &inf)
	assert.Contains(t, inf.Reason, "club limit 3 caps the selectable pool at 3")
}

func TestSelectRoster_InfeasibleOnlyBySearch(t *testing.T) {
	// Structural screens all pass here: supply, caps and budget look
	// fine in isolation. The only defender shares a club with every
	// goalkeeper, so with one slot per club no feasible pair exists and
	// the search itself must prove it.
	records := []Entity{
		{ID: 1, Name: "KeeperA", Category: CategoryGoalkeeper, Club: "ARS", Cost: 40, PredictedValue: 3.0, Availability: AvailabilityAvailable},
		{ID: 2, Name: "KeeperB", Category: CategoryGoalkeeper, Club: "ARS", Cost: 42, PredictedValue: 2.8, Availability: AvailabilityAvailable},
		{ID: 3, Name: "BackA", Category: CategoryDefender, Club: "ARS", Cost: 45, PredictedValue: 3.5, Availability: AvailabilityAvailable},
		{ID: 4, Name: "StrikerA", Category: CategoryForward, Club: "CHE", Cost: 60, PredictedValue: 6.0, Availability: AvailabilityAvailable},
	}
	pool, err := NewPool(records, DefaultCategories(), []string{"ARS", "CHE"})
	require.NoError(t, err)

	engine := NewEngine()
	_, err = engine.SelectRoster(context.Background(), pool, RosterConfig{
		TargetSize: 2,
		Budget:     200,
		MaxPerClub: 1,
		CategoryBounds: map[string]CategoryBound{
			CategoryGoalkeeper: {Min: 1, Max: 1},
			CategoryDefender:   {Min: 1, Max: 1},
			CategoryForward:    {Min: 0, Max: 0},
		},
	})

	var inf *InfeasibleError
	require.ErrorAs(t, err, &inf)
	assert.Equal(t, StageRoster, inf.Stage)
	assert.Contains(t, inf.Reason, "no selection satisfies all constraints simultaneously")
}

func TestSelectRoster_UncoveredCategoryRejected(t *testing.T) {
	pool, _ := fplShapedPool(t)
	engine := NewEngine()

	cfg := DefaultRosterConfig()
	delete(cfg.CategoryBounds, CategoryForward)
	cfg.TargetSize = 12

	_, err := engine.SelectRoster(context.Background(), pool, cfg)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, StageRoster, cfgErr.Stage)
	assert.Contains(t, cfgErr.Reason, "no bound configured for pool category")
	assert.Contains(t, cfgErr.Reason, CategoryForward)
}

func TestSelectRoster_TimeoutDistinctFromInfeasible(t *testing.T) {
	pool, _ := fplShapedPool(t)
	engine := NewEngine()

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	_, err := engine.SelectRoster(ctx, pool, DefaultRosterConfig())

	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StageRoster, terr.Stage)

	var inf *InfeasibleError
	assert.False(t, errors.As(err, &inf), "timeout must never surface as infeasibility")
}
