package report

import (
	"encoding/json"
	"os"

	"github.com/1S33dp1sk/glyph/internal/store"
)

// Plan is the subset of a plan.json file the status report consumes.
// Missing or invalid plan files read as an empty skeleton.
type Plan struct {
	Goals           []string `json:"goals"`
	Resources       []string `json:"resources"`
	SuccessCriteria []string `json:"success_criteria"`
}

// Snapshot holds the current index counts.
type Snapshot struct {
	Files      int `json:"files"`
	Entities   int `json:"entities"`
	Calls      int `json:"calls"`
	Unresolved int `json:"unresolved"`
}

// StatusReport evaluates a plan against the live index.
type StatusReport struct {
	PlanGoals      []string       `json:"plan_goals"`
	Snapshot       Snapshot       `json:"snapshot"`
	UnresolvedOK   string         `json:"unresolved_ok"`
	MissingSymbols map[string]int `json:"missing_symbols"`
}

// loadPlan reads a plan file best-effort.
func loadPlan(path string) Plan {
	var p Plan
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	json.Unmarshal(data, &p)
	return p
}

// Status computes snapshot counts and per-missing-name unresolved call
// counts. unresolved_ok is "yes" exactly when no call lacks a target.
func Status(s *store.Store, planPath string) (*StatusReport, error) {
	plan := loadPlan(planPath)

	files, err := s.CountFiles()
	if err != nil {
		return nil, err
	}
	entities, err := s.CountEntities()
	if err != nil {
		return nil, err
	}
	calls, err := s.CountCalls()
	if err != nil {
		return nil, err
	}
	unresolved, err := s.CountUnresolvedCalls()
	if err != nil {
		return nil, err
	}
	missing, err := s.MissingSymbols()
	if err != nil {
		return nil, err
	}

	ok := "no"
	if unresolved == 0 {
		ok = "yes"
	}
	goals := plan.Goals
	if goals == nil {
		goals = []string{}
	}
	return &StatusReport{
		PlanGoals: goals,
		Snapshot: Snapshot{
			Files:      files,
			Entities:   entities,
			Calls:      calls,
			Unresolved: unresolved,
		},
		UnresolvedOK:   ok,
		MissingSymbols: missing,
	}, nil
}
