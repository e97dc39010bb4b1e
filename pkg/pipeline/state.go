// Package pipeline implements the persisted state machine that drives an
// unattended software-delivery pipeline: an idea is discovered, planned,
// implemented and quality-checked one controlled step at a time.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage is one named phase of the pipeline with its own retry budget.
type Stage string

const (
	StageIdeation       Stage = "IDEATION"
	StagePlanningDraft  Stage = "PLANNING_DRAFT"
	StagePlanningReview Stage = "PLANNING_REVIEW"
	StageDev            Stage = "DEV"
	StageQA             Stage = "QA"
	StageDone           Stage = "DONE"
	StagePausedQuota    Stage = "PAUSED_QUOTA"
	StageRejected       Stage = "REJECTED"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageIdeation, StagePlanningDraft, StagePlanningReview,
		StageDev, StageQA, StageDone, StagePausedQuota, StageRejected:
		return true
	}
	return false
}

// Terminal reports whether the pipeline stops advancing at this stage.
func (s Stage) Terminal() bool {
	switch s {
	case StageDone, StagePausedQuota, StageRejected:
		return true
	}
	return false
}

// CounterKey maps a stage to the iteration budget it draws from. The two
// planning stages share a single budget; terminal stages have none.
func (s Stage) CounterKey() string {
	switch s {
	case StageIdeation:
		return "ideation"
	case StagePlanningDraft, StagePlanningReview:
		return "planning"
	case StageDev:
		return "dev"
	case StageQA:
		return "qa"
	}
	return ""
}

// Quality holds the last-observed evaluation signals for the current
// stage attempt. Score and pass/fail stay nil until a review or QA run
// produces them.
type Quality struct {
	ReviewScore   *float64 `yaml:"review_score,omitempty" json:"review_score,omitempty"`
	TestsPassed   *bool    `yaml:"tests_passed,omitempty" json:"tests_passed,omitempty"`
	RequiredScore float64  `yaml:"required_score" json:"required_score"`
}

// State is the single persisted aggregate for one project. It is passed
// through the loop by value semantics (Clone before mutation); the Store
// owns the durable copy.
type State struct {
	Stage          Stage          `yaml:"stage" json:"stage"`
	ProjectID      string         `yaml:"project_id" json:"project_id"`
	Idea           string         `yaml:"idea,omitempty" json:"idea,omitempty"`
	Iteration      map[string]int `yaml:"iteration" json:"iteration"`
	Limits         map[string]int `yaml:"limits" json:"limits"`
	Quality        Quality        `yaml:"quality" json:"quality"`
	PausedReason   string         `yaml:"paused_reason,omitempty" json:"paused_reason,omitempty"`
	RejectedReason string         `yaml:"rejected_reason,omitempty" json:"rejected_reason,omitempty"`
	LastUpdated    time.Time      `yaml:"last_updated" json:"last_updated"`
}

// NewState creates the initial state for a project at IDEATION entry.
func NewState(cfg *Config, idea string) *State {
	return &State{
		Stage:     StageIdeation,
		ProjectID: uuid.NewString(),
		Idea:      idea,
		Iteration: map[string]int{
			"ideation": 0,
			"planning": 0,
			"dev":      0,
			"qa":       0,
		},
		Limits:  cfg.LimitsMap(),
		Quality: Quality{RequiredScore: cfg.Quality.RequiredScore},
	}
}

// IterationFor returns the attempt count for the stage's budget.
func (st *State) IterationFor(s Stage) int {
	return st.Iteration[s.CounterKey()]
}

// LimitFor returns the configured iteration cap for the stage's budget.
func (st *State) LimitFor(s Stage) int {
	return st.Limits[s.CounterKey()+"_max"]
}

// BudgetRemaining reports whether the stage may be attempted again.
func (st *State) BudgetRemaining(s Stage) bool {
	return st.IterationFor(s) < st.LimitFor(s)
}

// Validate checks structural invariants. A violation means the state
// file is corrupt and must be surfaced, never silently defaulted.
func (st *State) Validate() error {
	if !st.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", st.Stage)
	}
	if st.ProjectID == "" {
		return fmt.Errorf("missing project_id")
	}
	for key, count := range st.Iteration {
		if count < 0 {
			return fmt.Errorf("negative iteration counter %s=%d", key, count)
		}
		if limit, ok := st.Limits[key+"_max"]; ok && count > limit {
			return fmt.Errorf("iteration counter %s=%d exceeds limit %d", key, count, limit)
		}
	}
	return nil
}

// Clone returns a deep copy of the state.
func (st *State) Clone() *State {
	dup := *st
	dup.Iteration = make(map[string]int, len(st.Iteration))
	for k, v := range st.Iteration {
		dup.Iteration[k] = v
	}
	dup.Limits = make(map[string]int, len(st.Limits))
	for k, v := range st.Limits {
		dup.Limits[k] = v
	}
	if st.Quality.ReviewScore != nil {
		score := *st.Quality.ReviewScore
		dup.Quality.ReviewScore = &score
	}
	if st.Quality.TestsPassed != nil {
		passed := *st.Quality.TestsPassed
		dup.Quality.TestsPassed = &passed
	}
	return &dup
}
