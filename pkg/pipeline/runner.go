package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conveyordev/conveyor/pkg/provider"
	"github.com/sirupsen/logrus"
)

// OutcomeKind enumerates the transitions a stage runner can request.
type OutcomeKind int

const (
	// OutcomeAdvance moves the project forward to Outcome.Next.
	OutcomeAdvance OutcomeKind = iota

	// OutcomeRetry stays on the current stage and consumes one unit of
	// its iteration budget.
	OutcomeRetry

	// OutcomeReject terminally halts the project: the stage's retry
	// budget is spent and the output still does not meet the bar.
	OutcomeReject

	// OutcomePause halts for quota exhaustion until an operator acts.
	OutcomePause
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAdvance:
		return "advance"
	case OutcomeRetry:
		return "retry"
	case OutcomeReject:
		return "reject"
	case OutcomePause:
		return "pause"
	}
	return "unknown"
}

// Outcome is the result of one stage execution. The orchestrator applies
// it to the state; runners never mutate persisted state themselves.
type Outcome struct {
	Kind        OutcomeKind
	Next        Stage    // destination stage for OutcomeAdvance
	Description string   // journal entry for the step
	Reason      string   // why a retry, reject or pause happened
	Quality     *Quality // updated evaluation signals, if any
	Alert       *Alert   // the persisted alert behind OutcomePause
}

// Advance builds a forward transition.
func Advance(next Stage, description string) Outcome {
	return Outcome{Kind: OutcomeAdvance, Next: next, Description: description}
}

// Retry requests another attempt at the current stage.
func Retry(reason string) Outcome {
	return Outcome{Kind: OutcomeRetry, Reason: reason, Description: "retry: " + reason}
}

// Reject terminally halts the project.
func Reject(reason string) Outcome {
	return Outcome{Kind: OutcomeReject, Reason: reason, Description: "rejected: " + reason}
}

// Pause halts for quota exhaustion.
func Pause(alert *Alert) Outcome {
	return Outcome{
		Kind:        OutcomePause,
		Reason:      alert.Reason,
		Description: fmt.Sprintf("paused: quota exhausted on %s", alert.Provider),
		Alert:       alert,
	}
}

// StageRunner executes the work of one stage and decides the transition.
// Runners are stateless with respect to the project; everything they
// need arrives in the StepContext.
type StageRunner interface {
	Stage() Stage
	Execute(ctx context.Context, step *StepContext) (Outcome, error)
}

// Runners returns the fixed stage-runner table. Every non-terminal
// stage has exactly one runner; the table is closed by construction.
func Runners() map[Stage]StageRunner {
	all := []StageRunner{
		&IdeationRunner{},
		&PlanningDraftRunner{},
		&PlanningReviewRunner{},
		&DevRunner{},
		&QARunner{},
	}
	table := make(map[Stage]StageRunner, len(all))
	for _, r := range all {
		table[r.Stage()] = r
	}
	return table
}

// StepContext carries everything a runner needs for a single step.
type StepContext struct {
	State     *State
	Config    *Config
	Providers *provider.Invoker
	Quota     *QuotaGuard
	DryRun    bool
	Log       *logrus.Entry
	Dir       string // project directory, for artifact output
}

// invoke runs one provider call on behalf of a runner and translates the
// provider error taxonomy where the policy is uniform: an exhausted
// rate-limit budget counts against the stage's own iteration budget, and
// quota exhaustion always pauses. A non-nil forced outcome preempts the
// runner's own decision.
func (sc *StepContext) invoke(ctx context.Context, class, prompt string) (out string, forced *Outcome, err error) {
	out, err = sc.Providers.Do(ctx, class, prompt)
	if err == nil {
		return out, nil, nil
	}
	if qe, ok := provider.AsQuota(err); ok {
		o, handleErr := sc.Quota.Handle(qe, sc.State)
		if handleErr != nil {
			return "", nil, handleErr
		}
		return "", &o, nil
	}
	if errors.Is(err, provider.ErrRateLimitExceeded) {
		o := sc.retryOrReject(err.Error())
		return "", &o, nil
	}
	return "", nil, err
}

// retryOrReject requests another attempt at the current stage, or halts
// the project when the stage's budget is spent.
func (sc *StepContext) retryOrReject(reason string) Outcome {
	stage := sc.State.Stage
	if sc.State.BudgetRemaining(stage) {
		return Retry(reason)
	}
	return Reject(fmt.Sprintf("%s budget exhausted (%d/%d): %s",
		stage.CounterKey(), sc.State.IterationFor(stage), sc.State.LimitFor(stage), reason))
}

// WriteArtifact stores a generated document under <project>/docs.
func (sc *StepContext) WriteArtifact(name, content string) error {
	dir := filepath.Join(sc.Dir, "docs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create docs directory: %w", err)
	}
	if err := WriteFileAtomic(filepath.Join(dir, name), []byte(content)); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}
