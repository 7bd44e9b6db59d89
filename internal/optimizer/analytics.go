package optimizer

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CategoryStats summarizes one category's slice of the pool.
type CategoryStats struct {
	Count       int     `json:"count"`
	MeanValue   float64 `json:"mean_value"`
	StdDevValue float64 `json:"stddev_value"`
	MinCost     int     `json:"min_cost"`
	MaxCost     int     `json:"max_cost"`
	TotalCost   int     `json:"total_cost"`
}

// EntityRating pairs an entity with its value-per-cost ratio, cost taken
// in whole currency units.
type EntityRating struct {
	Entity
	ValuePerCost float64 `json:"value_per_cost"`
}

// CostQuartiles marks the quartile boundaries of the pool's cost
// distribution, in raw tenths.
type CostQuartiles struct {
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
}

// PoolSummary is a presentation-agnostic statistical snapshot of a pool.
type PoolSummary struct {
	TotalEntities int                      `json:"total_entities"`
	TotalClubs    int                      `json:"total_clubs"`
	MeanValue     float64                  `json:"mean_value"`
	StdDevValue   float64                  `json:"stddev_value"`
	CostQuartiles CostQuartiles            `json:"cost_quartiles"`
	ByCategory    map[string]CategoryStats `json:"by_category"`
	TopRated      []EntityRating           `json:"top_rated"`
}

// Summarize computes pool-wide and per-category value statistics plus the
// topN entities by value per cost. Zero-cost entities are excluded from
// the ratio ranking.
func Summarize(pool *Pool, topN int) *PoolSummary {
	if topN <= 0 {
		topN = 10
	}

	summary := &PoolSummary{
		TotalEntities: pool.Len(),
		TotalClubs:    len(pool.CountByClub()),
		ByCategory:    make(map[string]CategoryStats),
	}

	allValues := make([]float64, 0, pool.Len())
	valuesByCat := make(map[string][]float64)
	for _, e := range pool.Entities() {
		allValues = append(allValues, e.PredictedValue)
		valuesByCat[e.Category] = append(valuesByCat[e.Category], e.PredictedValue)

		cs := summary.ByCategory[e.Category]
		if cs.Count == 0 || e.Cost < cs.MinCost {
			cs.MinCost = e.Cost
		}
		if e.Cost > cs.MaxCost {
			cs.MaxCost = e.Cost
		}
		cs.Count++
		cs.TotalCost += e.Cost
		summary.ByCategory[e.Category] = cs
	}

	summary.MeanValue = safeMean(allValues)
	summary.StdDevValue = safeStdDev(allValues)
	for cat, values := range valuesByCat {
		cs := summary.ByCategory[cat]
		cs.MeanValue = safeMean(values)
		cs.StdDevValue = safeStdDev(values)
		summary.ByCategory[cat] = cs
	}

	costs := make([]float64, 0, pool.Len())
	for _, e := range pool.Entities() {
		costs = append(costs, float64(e.Cost))
	}
	sort.Float64s(costs)
	if len(costs) > 0 {
		summary.CostQuartiles = CostQuartiles{
			Q1:     stat.Quantile(0.25, stat.Empirical, costs, nil),
			Median: stat.Quantile(0.5, stat.Empirical, costs, nil),
			Q3:     stat.Quantile(0.75, stat.Empirical, costs, nil),
		}
	}

	ratings := make([]EntityRating, 0, pool.Len())
	for _, e := range pool.Entities() {
		if e.Cost <= 0 {
			continue
		}
		ratings = append(ratings, EntityRating{
			Entity:       e,
			ValuePerCost: e.PredictedValue / (float64(e.Cost) / 10.0),
		})
	}
	sort.Slice(ratings, func(i, j int) bool {
		if ratings[i].ValuePerCost != ratings[j].ValuePerCost {
			return ratings[i].ValuePerCost > ratings[j].ValuePerCost
		}
		return ratings[i].ID < ratings[j].ID
	})
	if len(ratings) > topN {
		ratings = ratings[:topN]
	}
	summary.TopRated = ratings

	return summary
}

func safeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func safeStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}
