package optimizer

import (
	"fmt"
	"strings"
	"time"
)

// Stage names used in error reporting.
const (
	StageRoster = "roster"
	StageLineup = "lineup"
)

// Defect describes one rejected input record.
type Defect struct {
	Index    int    `json:"index"`
	EntityID int    `json:"entity_id"`
	Field    string `json:"field"`
	Reason   string `json:"reason"`
}

func (d Defect) String() string {
	return fmt.Sprintf("record %d (id %d): %s %s", d.Index, d.EntityID, d.Field, d.Reason)
}

// DataValidationError reports every defect found in an input batch. The
// batch is rejected as a whole; nothing is partially ingested.
type DataValidationError struct {
	Defects []Defect
}

func (e *DataValidationError) Error() string {
	if len(e.Defects) == 0 {
		return "pool validation failed"
	}
	msgs := make([]string, len(e.Defects))
	for i, d := range e.Defects {
		msgs[i] = d.String()
	}
	return fmt.Sprintf("pool validation failed with %d defect(s): %s", len(e.Defects), strings.Join(msgs, "; "))
}

// ConfigurationError reports a constraint configuration that is
// unsatisfiable independent of any data. It is raised before a solve is
// attempted.
type ConfigurationError struct {
	Stage  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s configuration invalid: %s", e.Stage, e.Reason)
}

// InfeasibleError reports an empty feasible region for a valid
// configuration and pool. It is an expected outcome, not a defect. Reason
// carries a structural diagnosis when one is cheaply determinable.
type InfeasibleError struct {
	Stage  string
	Reason string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%s selection infeasible: %s", e.Stage, e.Reason)
}

// TimeoutError reports a solve that exhausted its wall-clock budget before
// proving optimality or infeasibility. Never conflated with InfeasibleError.
type TimeoutError struct {
	Stage  string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Budget > 0 {
		return fmt.Sprintf("%s solve exceeded time budget of %s", e.Stage, e.Budget)
	}
	return fmt.Sprintf("%s solve cancelled before completion", e.Stage)
}

// InternalInconsistencyError reports a stage-2 infeasibility that the
// validated configuration precondition should have made impossible. It
// indicates a logic defect and is never downgraded to a plain infeasible
// outcome.
type InternalInconsistencyError struct {
	Reason string
}

func (e *InternalInconsistencyError) Error() string {
	return fmt.Sprintf("internal inconsistency: %s", e.Reason)
}
