package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_ComputesStats(t *testing.T) {
	clubs := []string{"ARS", "CHE", "LIV"}
	records := []Entity{
		{ID: 1, Name: "KeeperA", Category: CategoryGoalkeeper, Club: "ARS", Cost: 40, PredictedValue: 2.0, Availability: AvailabilityAvailable},
		{ID: 2, Name: "KeeperB", Category: CategoryGoalkeeper, Club: "CHE", Cost: 50, PredictedValue: 4.0, Availability: AvailabilityAvailable},
		{ID: 3, Name: "BackA", Category: CategoryDefender, Club: "LIV", Cost: 60, PredictedValue: 6.0, Availability: AvailabilityAvailable},
		{ID: 4, Name: "MidA", Category: CategoryMidfielder, Club: "ARS", Cost: 80, PredictedValue: 8.0, Availability: AvailabilityAvailable},
	}
	pool, err := NewPool(records, DefaultCategories(), clubs)
	require.NoError(t, err)

	summary := Summarize(pool, 3)

	assert.Equal(t, 4, summary.TotalEntities)
	assert.Equal(t, 3, summary.TotalClubs)
	assert.InDelta(t, 5.0, summary.MeanValue, 1e-9)
	// Sample standard deviation of {2, 4, 6, 8}.
	assert.InDelta(t, math.Sqrt(20.0/3.0), summary.StdDevValue, 1e-9)

	// Empirical quartiles over costs {40, 50, 60, 80}.
	assert.Equal(t, 40.0, summary.CostQuartiles.Q1)
	assert.Equal(t, 50.0, summary.CostQuartiles.Median)
	assert.Equal(t, 60.0, summary.CostQuartiles.Q3)

	gk := summary.ByCategory[CategoryGoalkeeper]
	assert.Equal(t, 2, gk.Count)
	assert.InDelta(t, 3.0, gk.MeanValue, 1e-9)
	assert.Equal(t, 40, gk.MinCost)
	assert.Equal(t, 50, gk.MaxCost)
	assert.Equal(t, 90, gk.TotalCost)

	def := summary.ByCategory[CategoryDefender]
	assert.Equal(t, 1, def.Count)
	assert.Equal(t, 0.0, def.StdDevValue, "single sample has no spread")
}

func TestSummarize_TopRatedOrdering(t *testing.T) {
	clubs := []string{"ARS", "CHE", "LIV", "TOT"}
	records := []Entity{
		// value per cost: 2.0 / 4.0 = 0.5
		{ID: 1, Name: "KeeperA", Category: CategoryGoalkeeper, Club: "ARS", Cost: 40, PredictedValue: 2.0, Availability: AvailabilityAvailable},
		// 6.0 / 5.0 = 1.2
		{ID: 2, Name: "BackA", Category: CategoryDefender, Club: "CHE", Cost: 50, PredictedValue: 6.0, Availability: AvailabilityAvailable},
		// 7.2 / 6.0 = 1.2, tied with id 2, loses on id
		{ID: 3, Name: "MidA", Category: CategoryMidfielder, Club: "LIV", Cost: 60, PredictedValue: 7.2, Availability: AvailabilityAvailable},
		// free transfers never enter the ranking
		{ID: 4, Name: "MidB", Category: CategoryMidfielder, Club: "TOT", Cost: 0, PredictedValue: 9.9, Availability: AvailabilityAvailable},
	}
	pool, err := NewPool(records, DefaultCategories(), clubs)
	require.NoError(t, err)

	summary := Summarize(pool, 2)

	require.Len(t, summary.TopRated, 2)
	assert.Equal(t, 2, summary.TopRated[0].ID)
	assert.Equal(t, 3, summary.TopRated[1].ID)
	assert.InDelta(t, 1.2, summary.TopRated[0].ValuePerCost, 1e-9)
}

func TestSummarize_EmptyPool(t *testing.T) {
	pool, err := NewPool(nil, DefaultCategories(), []string{"ARS"})
	require.NoError(t, err)

	summary := Summarize(pool, 0)

	assert.Equal(t, 0, summary.TotalEntities)
	assert.Equal(t, 0.0, summary.MeanValue)
	assert.Equal(t, CostQuartiles{}, summary.CostQuartiles)
	assert.Empty(t, summary.TopRated)
	assert.Empty(t, summary.ByCategory)
}
