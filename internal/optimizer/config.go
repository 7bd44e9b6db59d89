package optimizer

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks the stage-1 configuration for internal consistency,
// independent of any pool. A violation means no data could ever satisfy
// the stage, so it is reported as a ConfigurationError before solving.
func (c RosterConfig) Validate() error {
	if c.TargetSize <= 0 {
		return &ConfigurationError{Stage: StageRoster, Reason: fmt.Sprintf("target size must be positive, got %d", c.TargetSize)}
	}
	if c.Budget < 0 {
		return &ConfigurationError{Stage: StageRoster, Reason: fmt.Sprintf("budget must be non-negative, got %d", c.Budget)}
	}
	if c.MaxPerClub <= 0 {
		return &ConfigurationError{Stage: StageRoster, Reason: fmt.Sprintf("max per club must be positive, got %d", c.MaxPerClub)}
	}
	if len(c.CategoryBounds) == 0 {
		return &ConfigurationError{Stage: StageRoster, Reason: "no category bounds configured"}
	}
	if err := validateBounds(StageRoster, c.TargetSize, c.CategoryBounds); err != nil {
		return err
	}
	return nil
}

// Validate checks the stage-2 configuration for internal consistency.
func (c LineupConfig) Validate() error {
	if c.TargetSize <= 0 {
		return &ConfigurationError{Stage: StageLineup, Reason: fmt.Sprintf("target size must be positive, got %d", c.TargetSize)}
	}
	if len(c.CategoryBounds) == 0 {
		return &ConfigurationError{Stage: StageLineup, Reason: "no category bounds configured"}
	}
	if err := validateBounds(StageLineup, c.TargetSize, c.CategoryBounds); err != nil {
		return err
	}
	return nil
}

// validateBounds enforces 0 <= min <= max per category and the window
// invariant sum(min) <= target <= sum(max).
func validateBounds(stage string, target int, bounds map[string]CategoryBound) error {
	sumMin, sumMax := 0, 0
	for _, cat := range sortedCategories(bounds) {
		b := bounds[cat]
		if b.Min < 0 {
			return &ConfigurationError{Stage: stage, Reason: fmt.Sprintf("category %s minimum must be non-negative, got %d", cat, b.Min)}
		}
		if b.Max < b.Min {
			return &ConfigurationError{Stage: stage, Reason: fmt.Sprintf("category %s maximum %d is below minimum %d", cat, b.Max, b.Min)}
		}
		sumMin += b.Min
		sumMax += b.Max
	}
	if sumMin > target {
		return &ConfigurationError{Stage: stage, Reason: fmt.Sprintf("category minimums total %d, exceeding target size %d", sumMin, target)}
	}
	if sumMax < target {
		return &ConfigurationError{Stage: stage, Reason: fmt.Sprintf("category maximums total %d, below target size %d", sumMax, target)}
	}
	return nil
}

// CheckLineupCompatibility verifies, independent of which entities end up
// on the roster, that every composition stage 1 can produce admits at
// least one feasible stage-2 selection. It must pass before a two-stage
// run; a stage-2 infeasibility after it passed is an internal
// inconsistency, not a legitimate outcome.
//
// The check is exact: it walks every achievable per-category composition
// of the roster (the windows are small in practice, so this is cheap) and
// rejects the configuration pair with a concrete counterexample when one
// exists.
func CheckLineupCompatibility(roster RosterConfig, lineup LineupConfig) error {
	if err := roster.Validate(); err != nil {
		return err
	}
	if err := lineup.Validate(); err != nil {
		return err
	}
	if lineup.TargetSize > roster.TargetSize {
		return &ConfigurationError{
			Stage:  StageLineup,
			Reason: fmt.Sprintf("lineup size %d exceeds roster size %d", lineup.TargetSize, roster.TargetSize),
		}
	}

	for _, cat := range sortedCategories(lineup.CategoryBounds) {
		if _, ok := roster.CategoryBounds[cat]; !ok && lineup.CategoryBounds[cat].Min > 0 {
			return &ConfigurationError{
				Stage:  StageLineup,
				Reason: fmt.Sprintf("category %s requires %d starters but is not part of the roster configuration", cat, lineup.CategoryBounds[cat].Min),
			}
		}
	}
	cats := sortedCategories(roster.CategoryBounds)
	for _, cat := range cats {
		if _, ok := lineup.CategoryBounds[cat]; !ok {
			return &ConfigurationError{
				Stage:  StageLineup,
				Reason: fmt.Sprintf("category %s is selectable at stage 1 but has no lineup bound", cat),
			}
		}
	}

	sufMin := make([]int, len(cats)+1)
	sufMax := make([]int, len(cats)+1)
	for i := len(cats) - 1; i >= 0; i-- {
		b := roster.CategoryBounds[cats[i]]
		sufMin[i] = sufMin[i+1] + b.Min
		sufMax[i] = sufMax[i+1] + b.Max
	}

	comp := make([]int, len(cats))
	var walk func(i, remaining int) error
	walk = func(i, remaining int) error {
		if i == len(cats) {
			return checkComposition(cats, comp, lineup)
		}
		b := roster.CategoryBounds[cats[i]]
		lo := maxInt(b.Min, remaining-sufMax[i+1])
		hi := minInt(b.Max, remaining-sufMin[i+1])
		for n := lo; n <= hi; n++ {
			comp[i] = n
			if err := walk(i+1, remaining-n); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(0, roster.TargetSize)
}

// checkComposition tests one achievable roster composition against the
// lineup windows.
func checkComposition(cats []string, comp []int, lineup LineupConfig) error {
	usable := 0
	for i, cat := range cats {
		lb := lineup.CategoryBounds[cat]
		if comp[i] < lb.Min {
			return &ConfigurationError{
				Stage:  StageLineup,
				Reason: fmt.Sprintf("roster composition %s provides %d of category %s, lineup requires at least %d", formatComposition(cats, comp), comp[i], cat, lb.Min),
			}
		}
		usable += minInt(comp[i], lb.Max)
	}
	if usable < lineup.TargetSize {
		return &ConfigurationError{
			Stage:  StageLineup,
			Reason: fmt.Sprintf("roster composition %s leaves only %d usable starters, lineup needs %d", formatComposition(cats, comp), usable, lineup.TargetSize),
		}
	}
	return nil
}

func formatComposition(cats []string, comp []int) string {
	parts := make([]string, len(cats))
	for i, cat := range cats {
		parts[i] = fmt.Sprintf("%s=%d", cat, comp[i])
	}
	return strings.Join(parts, " ")
}

func sortedCategories(bounds map[string]CategoryBound) []string {
	cats := make([]string, 0, len(bounds))
	for c := range bounds {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
