package optimizer

import (
	"fmt"
	"math"
	"sort"
)

// Pool is a validated, immutable snapshot of candidate entities for one
// optimization request. Entities are held in ascending id order.
type Pool struct {
	entities   []Entity
	categories map[string]bool
	clubs      map[string]bool
}

// NewPool validates a batch of raw entity records against the recognized
// category and club enumerations and returns a Pool, or a
// DataValidationError listing every defect in the batch. Validation is
// exhaustive: all records are checked even after the first failure.
func NewPool(records []Entity, categories []string, clubs []string) (*Pool, error) {
	catSet := make(map[string]bool, len(categories))
	for _, c := range categories {
		catSet[c] = true
	}
	clubSet := make(map[string]bool, len(clubs))
	for _, c := range clubs {
		clubSet[c] = true
	}

	var defects []Defect
	seen := make(map[int]int, len(records))

	for i, rec := range records {
		if rec.ID <= 0 {
			defects = append(defects, Defect{Index: i, EntityID: rec.ID, Field: "id", Reason: "must be a positive integer"})
		} else if prev, dup := seen[rec.ID]; dup {
			defects = append(defects, Defect{Index: i, EntityID: rec.ID, Field: "id", Reason: fmt.Sprintf("duplicates record %d", prev)})
		} else {
			seen[rec.ID] = i
		}
		if rec.Name == "" {
			defects = append(defects, Defect{Index: i, EntityID: rec.ID, Field: "name", Reason: "is missing"})
		}
		if !catSet[rec.Category] {
			defects = append(defects, Defect{Index: i, EntityID: rec.ID, Field: "category", Reason: fmt.Sprintf("%q is not a recognized category", rec.Category)})
		}
		if !clubSet[rec.Club] {
			defects = append(defects, Defect{Index: i, EntityID: rec.ID, Field: "club", Reason: fmt.Sprintf("%q is not a recognized club", rec.Club)})
		}
		if rec.Cost < 0 {
			defects = append(defects, Defect{Index: i, EntityID: rec.ID, Field: "cost", Reason: fmt.Sprintf("must be non-negative, got %d", rec.Cost)})
		}
		if math.IsNaN(rec.PredictedValue) || math.IsInf(rec.PredictedValue, 0) {
			defects = append(defects, Defect{Index: i, EntityID: rec.ID, Field: "predicted_value", Reason: "must be finite"})
		}
		switch rec.Availability {
		case AvailabilityAvailable, AvailabilityUnavailable, AvailabilityUncertain:
		default:
			defects = append(defects, Defect{Index: i, EntityID: rec.ID, Field: "availability", Reason: fmt.Sprintf("%q is not a recognized state", rec.Availability)})
		}
	}

	if len(defects) > 0 {
		return nil, &DataValidationError{Defects: defects}
	}

	entities := make([]Entity, len(records))
	copy(entities, records)
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })

	return &Pool{
		entities:   entities,
		categories: catSet,
		clubs:      clubSet,
	}, nil
}

// FilterFunc is a predicate over entities used to narrow a pool.
type FilterFunc func(Entity) bool

// Available keeps only entities flagged as available.
func Available() FilterFunc {
	return func(e Entity) bool { return e.Availability == AvailabilityAvailable }
}

// MaxCost keeps only entities costing at most limit (raw tenths).
func MaxCost(limit int) FilterFunc {
	return func(e Entity) bool { return e.Cost <= limit }
}

// Categories keeps only entities whose category is in the given subset.
func Categories(subset ...string) FilterFunc {
	allowed := make(map[string]bool, len(subset))
	for _, c := range subset {
		allowed[c] = true
	}
	return func(e Entity) bool { return allowed[e.Category] }
}

// Clubs keeps only entities whose club is in the given subset.
func Clubs(subset ...string) FilterFunc {
	allowed := make(map[string]bool, len(subset))
	for _, c := range subset {
		allowed[c] = true
	}
	return func(e Entity) bool { return allowed[e.Club] }
}

// Filter returns a derived pool containing only entities that satisfy
// every predicate. The underlying records are never mutated; an empty
// filter list returns a pool over the same entities.
func (p *Pool) Filter(filters ...FilterFunc) *Pool {
	kept := make([]Entity, 0, len(p.entities))
	for _, e := range p.entities {
		ok := true
		for _, f := range filters {
			if !f(e) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, e)
		}
	}
	return &Pool{entities: kept, categories: p.categories, clubs: p.clubs}
}

// Len returns the number of entities in the pool.
func (p *Pool) Len() int {
	return len(p.entities)
}

// Entities returns the pool's entities in ascending id order. Callers
// treat the slice as read-only.
func (p *Pool) Entities() []Entity {
	return p.entities
}

// Entity looks up one entity by id.
func (p *Pool) Entity(id int) (Entity, bool) {
	idx := sort.Search(len(p.entities), func(i int) bool { return p.entities[i].ID >= id })
	if idx < len(p.entities) && p.entities[idx].ID == id {
		return p.entities[idx], true
	}
	return Entity{}, false
}

// CountByCategory returns the entity count per category.
func (p *Pool) CountByCategory() map[string]int {
	counts := make(map[string]int)
	for _, e := range p.entities {
		counts[e.Category]++
	}
	return counts
}

// CountByClub returns the entity count per club.
func (p *Pool) CountByClub() map[string]int {
	counts := make(map[string]int)
	for _, e := range p.entities {
		counts[e.Club]++
	}
	return counts
}

// Categories returns the recognized category enumeration, sorted.
func (p *Pool) Categories() []string {
	out := make([]string, 0, len(p.categories))
	for c := range p.categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Clubs returns the recognized club enumeration, sorted.
func (p *Pool) Clubs() []string {
	out := make([]string, 0, len(p.clubs))
	for c := range p.clubs {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
