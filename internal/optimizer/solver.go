package optimizer

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// valueEpsilon absorbs float drift when comparing objective values
	// accumulated along different search paths.
	valueEpsilon = 1e-9

	// cancelCheckInterval is the node count between context checks.
	cancelCheckInterval = 1024
)

// problem is one stage's search space in solver form. A negative budget
// disables the budget constraint; a non-positive maxPerClub disables the
// club constraint.
type problem struct {
	stage      string
	entities   []Entity
	targetSize int
	budget     int
	bounds     map[string]CategoryBound
	maxPerClub int
}

// solution is a completed selection: canonical ascending id list plus the
// achieved totals as accumulated during search.
type solution struct {
	ids   []int
	value float64
	cost  int
}

type solveStats struct {
	nodes   int64
	pruned  int64
	elapsed time.Duration
}

// betterSolution reports whether a beats b under the canonical ordering:
// higher value, then lower cost, then lexicographically smaller id list.
func betterSolution(a, b *solution) bool {
	if a.value > b.value+valueEpsilon {
		return true
	}
	if b.value > a.value+valueEpsilon {
		return false
	}
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	for i := 0; i < len(a.ids) && i < len(b.ids); i++ {
		if a.ids[i] != b.ids[i] {
			return a.ids[i] < b.ids[i]
		}
	}
	return false
}

// solver runs an exact depth-first branch and bound over the 0/1 selection
// space. Entities are branched in descending value order so the first dive
// behaves like a greedy pass and seeds a strong incumbent; optimistic
// bounds only ever overestimate, so pruning never discards a selection
// that could still win under the canonical ordering.
type solver struct {
	prob   *problem
	logger *logrus.Entry
	ctx    context.Context

	order     []Entity
	cats      []string
	boundsArr []CategoryBound
	catIdx    []int
	clubIdx   []int
	clubs     []string

	// suffix precomputations, indexed by branch position
	minCostSuf []int
	catSuffix  [][]int
	topVals    [][]float64
	catTop     [][][]float64

	picked    []int
	catCount  []int
	clubCount []int

	best      *solution
	nodes     int64
	pruned    int64
	cancelled bool
}

func newSolver(ctx context.Context, prob *problem, logger *logrus.Entry) *solver {
	s := &solver{
		prob:   prob,
		logger: logger,
		ctx:    ctx,
	}

	s.order = make([]Entity, len(prob.entities))
	copy(s.order, prob.entities)
	sort.Slice(s.order, func(i, j int) bool {
		a, b := s.order[i], s.order[j]
		if a.PredictedValue != b.PredictedValue {
			return a.PredictedValue > b.PredictedValue
		}
		if a.Cost != b.Cost {
			return a.Cost < b.Cost
		}
		return a.ID < b.ID
	})

	s.cats = sortedCategories(prob.bounds)
	catIndex := make(map[string]int, len(s.cats))
	s.boundsArr = make([]CategoryBound, len(s.cats))
	for i, c := range s.cats {
		catIndex[c] = i
		s.boundsArr[i] = prob.bounds[c]
	}

	clubIndex := make(map[string]int)
	for _, e := range s.order {
		if _, ok := clubIndex[e.Club]; !ok {
			clubIndex[e.Club] = len(s.clubs)
			s.clubs = append(s.clubs, e.Club)
		}
	}

	n := len(s.order)
	s.catIdx = make([]int, n)
	s.clubIdx = make([]int, n)
	for i, e := range s.order {
		s.catIdx[i] = catIndex[e.Category]
		s.clubIdx[i] = clubIndex[e.Club]
	}

	s.precompute()

	s.picked = make([]int, 0, prob.targetSize)
	s.catCount = make([]int, len(s.cats))
	s.clubCount = make([]int, len(s.clubs))

	return s
}

// precompute builds, for every suffix of the branch order, the cheapest
// single cost, per-category supply counts, and prefix sums of the largest
// values both overall (forced-size bound) and per category (capacity-aware
// bound, positive values only).
func (s *solver) precompute() {
	n := len(s.order)
	target := s.prob.targetSize

	s.minCostSuf = make([]int, n+1)
	s.catSuffix = make([][]int, n+1)
	s.topVals = make([][]float64, n+1)
	s.catTop = make([][][]float64, len(s.cats))
	for ci := range s.cats {
		s.catTop[ci] = make([][]float64, n+1)
	}

	s.minCostSuf[n] = 0
	s.catSuffix[n] = make([]int, len(s.cats))
	s.topVals[n] = []float64{0}
	for ci := range s.cats {
		s.catTop[ci][n] = []float64{0}
	}

	window := make([]float64, 0, target)
	catWindow := make([][]float64, len(s.cats))
	for ci := range s.cats {
		catWindow[ci] = make([]float64, 0, s.boundsArr[ci].Max)
	}

	for i := n - 1; i >= 0; i-- {
		e := s.order[i]
		ci := s.catIdx[i]

		if i == n-1 || e.Cost < s.minCostSuf[i+1] {
			s.minCostSuf[i] = e.Cost
		} else {
			s.minCostSuf[i] = s.minCostSuf[i+1]
		}

		counts := make([]int, len(s.cats))
		copy(counts, s.catSuffix[i+1])
		counts[ci]++
		s.catSuffix[i] = counts

		window = insertDescCapped(window, e.PredictedValue, target)
		s.topVals[i] = prefixSums(window)

		for cj := range s.cats {
			if cj == ci && e.PredictedValue > 0 && s.boundsArr[cj].Max > 0 {
				catWindow[cj] = insertDescCapped(catWindow[cj], e.PredictedValue, s.boundsArr[cj].Max)
				s.catTop[cj][i] = prefixSums(catWindow[cj])
			} else {
				s.catTop[cj][i] = s.catTop[cj][i+1]
			}
		}
	}
}

// insertDescCapped inserts v into a descending-sorted slice, keeping at
// most limit elements. The input slice is reused.
func insertDescCapped(vals []float64, v float64, limit int) []float64 {
	pos := len(vals)
	for pos > 0 && vals[pos-1] < v {
		pos--
	}
	if pos >= limit {
		return vals
	}
	if len(vals) < limit {
		vals = append(vals, 0)
	}
	copy(vals[pos+1:], vals[pos:])
	vals[pos] = v
	return vals
}

func prefixSums(vals []float64) []float64 {
	out := make([]float64, len(vals)+1)
	for i, v := range vals {
		out[i+1] = out[i] + v
	}
	return out
}

// optimistic returns an upper bound on the additional value obtainable by
// filling the remaining slots from the suffix starting at idx. Both
// component bounds relax constraints, so neither underestimates.
func (s *solver) optimistic(idx, remaining int) float64 {
	forced := s.topVals[idx][remaining]

	capped := 0.0
	for ci := range s.cats {
		headroom := s.boundsArr[ci].Max - s.catCount[ci]
		if headroom <= 0 {
			continue
		}
		prefix := s.catTop[ci][idx]
		k := len(prefix) - 1
		if headroom < k {
			k = headroom
		}
		capped += prefix[k]
	}

	if capped < forced {
		return capped
	}
	return forced
}

func (s *solver) search(idx, chosen, cost int, value float64) {
	if s.cancelled {
		return
	}
	s.nodes++
	if s.nodes%cancelCheckInterval == 0 {
		select {
		case <-s.ctx.Done():
			s.cancelled = true
			return
		default:
		}
	}

	if chosen == s.prob.targetSize {
		s.offer(value, cost)
		return
	}

	remaining := s.prob.targetSize - chosen
	if len(s.order)-idx < remaining {
		s.pruned++
		return
	}

	needed := 0
	for ci := range s.cats {
		mn := s.boundsArr[ci].Min
		if s.catCount[ci] < mn {
			if s.catCount[ci]+s.catSuffix[idx][ci] < mn {
				s.pruned++
				return
			}
			needed += mn - s.catCount[ci]
		}
	}
	if needed > remaining {
		s.pruned++
		return
	}

	if s.prob.budget >= 0 && cost+remaining*s.minCostSuf[idx] > s.prob.budget {
		s.pruned++
		return
	}

	if s.best != nil {
		bound := value + s.optimistic(idx, remaining)
		if bound < s.best.value-valueEpsilon {
			s.pruned++
			return
		}
		if bound <= s.best.value+valueEpsilon {
			// The subtree can at best tie on value, so it must beat the
			// incumbent on cost to matter.
			if cost+remaining*s.minCostSuf[idx] > s.best.cost {
				s.pruned++
				return
			}
		}
	}

	e := s.order[idx]
	ci := s.catIdx[idx]
	cl := s.clubIdx[idx]

	canInclude := s.catCount[ci] < s.boundsArr[ci].Max &&
		(s.prob.maxPerClub <= 0 || s.clubCount[cl] < s.prob.maxPerClub) &&
		(s.prob.budget < 0 || cost+e.Cost <= s.prob.budget)

	if canInclude {
		s.picked = append(s.picked, idx)
		s.catCount[ci]++
		s.clubCount[cl]++
		s.search(idx+1, chosen+1, cost+e.Cost, value+e.PredictedValue)
		s.clubCount[cl]--
		s.catCount[ci]--
		s.picked = s.picked[:len(s.picked)-1]
	}
	if s.cancelled {
		return
	}

	s.search(idx+1, chosen, cost, value)
}

// offer records a completed selection if it beats the incumbent under the
// canonical ordering.
func (s *solver) offer(value float64, cost int) {
	for ci := range s.cats {
		if s.catCount[ci] < s.boundsArr[ci].Min {
			return
		}
	}
	ids := make([]int, len(s.picked))
	for i, oi := range s.picked {
		ids[i] = s.order[oi].ID
	}
	sort.Ints(ids)
	cand := &solution{ids: ids, value: value, cost: cost}
	if s.best == nil || betterSolution(cand, s.best) {
		s.best = cand
	}
}

// solve runs the exact search to completion. A nil solution with a nil
// error means the feasible region is empty; the caller owns the diagnosis.
func solve(ctx context.Context, prob *problem, logger *logrus.Entry) (*solution, *solveStats, error) {
	start := time.Now()

	s := newSolver(ctx, prob, logger)
	select {
	case <-ctx.Done():
		s.cancelled = true
	default:
		s.search(0, 0, 0, 0)
	}

	stats := &solveStats{nodes: s.nodes, pruned: s.pruned, elapsed: time.Since(start)}

	if s.cancelled {
		var budget time.Duration
		if deadline, ok := ctx.Deadline(); ok {
			budget = deadline.Sub(start)
		}
		s.logger.WithFields(logrus.Fields{
			"stage":   prob.stage,
			"nodes":   stats.nodes,
			"elapsed": stats.elapsed.String(),
		}).Warn("Solve cancelled before proving optimality")
		return nil, stats, &TimeoutError{Stage: prob.stage, Budget: budget}
	}

	s.logger.WithFields(logrus.Fields{
		"stage":    prob.stage,
		"entities": len(prob.entities),
		"nodes":    stats.nodes,
		"pruned":   stats.pruned,
		"elapsed":  stats.elapsed.String(),
		"feasible": s.best != nil,
	}).Debug("Solve completed")

	return s.best, stats, nil
}
