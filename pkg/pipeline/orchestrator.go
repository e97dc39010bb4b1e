package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/conveyordev/conveyor/pkg/provider"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrHalted reports that the pipeline is already in a terminal stage and
// cannot be stepped further.
var ErrHalted = errors.New("pipeline is in a terminal stage")

// Orchestrator drives the pipeline: it loads state, dispatches to the
// runner for the current stage, applies the returned outcome, and
// persists the result. Exactly one state mutation per step; no hidden
// multi-stage advancement.
type Orchestrator struct {
	store   *Store
	cfg     *Config
	invoker *provider.Invoker
	quota   *QuotaGuard
	journal *Journal
	runners map[Stage]StageRunner
	log     *logrus.Entry
}

// New creates an orchestrator for the project directory. A nil client
// selects the configured provider command.
func New(dir string, cfg *Config, client provider.Client) *Orchestrator {
	if client == nil {
		client = provider.NewCommandClient(cfg.Command, nil)
	}
	router := provider.NewRouter(cfg.Providers)
	limiter := provider.NewRateLimiter(cfg.Limits.RateLimitMaxRetries, cfg.MaxWait())
	return NewWithInvoker(dir, cfg, provider.NewInvoker(client, router, limiter))
}

// NewWithInvoker creates an orchestrator around a pre-built provider
// invoker. Tests use it to control backoff timing.
func NewWithInvoker(dir string, cfg *Config, invoker *provider.Invoker) *Orchestrator {
	return &Orchestrator{
		store:   NewStore(dir),
		cfg:     cfg,
		invoker: invoker,
		quota:   NewQuotaGuard(NewAlertStore(dir)),
		journal: NewJournal(dir),
		runners: Runners(),
		log:     logrus.WithField("component", "orchestrator"),
	}
}

// Store exposes the state store, for read-only surfaces like status.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Step performs exactly one state transition under the exclusive step
// lock and persists it. With dryRun set, the transition is computed and
// logged but no provider is called and nothing is persisted; the
// would-be state is returned for inspection.
func (o *Orchestrator) Step(ctx context.Context, dryRun bool) (*State, error) {
	lock, err := o.store.Acquire()
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	st, err := o.store.Load()
	if err != nil {
		return nil, err
	}

	if st.Stage.Terminal() {
		o.log.WithFields(logrus.Fields{
			"project": st.ProjectID,
			"stage":   string(st.Stage),
		}).Info("pipeline already halted")
		return st, ErrHalted
	}

	runner, ok := o.runners[st.Stage]
	if !ok {
		return nil, fmt.Errorf("no runner registered for stage %s", st.Stage)
	}

	stepLog := o.log.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"project":    st.ProjectID,
		"stage":      string(st.Stage),
		"iteration":  st.IterationFor(st.Stage),
		"dry_run":    dryRun,
	})

	step := &StepContext{
		State:     st,
		Config:    o.cfg,
		Providers: o.invoker,
		Quota:     o.quota,
		DryRun:    dryRun,
		Log:       stepLog,
		Dir:       o.store.Dir(),
	}

	outcome, err := runner.Execute(ctx, step)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", st.Stage, err)
	}

	next := st.Clone()
	if err := applyOutcome(next, outcome); err != nil {
		return nil, err
	}

	stepLog.WithFields(logrus.Fields{
		"outcome":    outcome.Kind.String(),
		"next_stage": string(next.Stage),
	}).Info("step resolved")

	if dryRun {
		return next, nil
	}

	if err := o.store.Save(next); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}

	if err := o.journal.Append(Record{
		Stage:       string(st.Stage),
		Description: outcome.Description,
		Iteration:   countersCopy(next.Iteration),
		At:          next.LastUpdated,
	}); err != nil {
		// The step itself succeeded and is durable; a journal failure is
		// reported but does not fail the step.
		stepLog.WithError(err).Warn("failed to append journal record")
	}

	return next, nil
}

// LoopResult summarizes a continuous run.
type LoopResult struct {
	State *State
	Steps int
}

// Loop repeats single steps until the pipeline reaches a terminal stage,
// the step guardrail is hit, the context is cancelled, or a step fails.
// Cancellation is honored between steps only: an in-flight provider call
// is allowed to finish so the persisted state stays unambiguous about
// whether the external side effect happened.
func (o *Orchestrator) Loop(ctx context.Context, maxSteps int, dryRun bool) (*LoopResult, error) {
	if maxSteps < 0 {
		return nil, fmt.Errorf("max steps must be >= 0, got %d", maxSteps)
	}

	res := &LoopResult{}
	for i := 0; i < maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		st, err := o.Step(ctx, dryRun)
		if errors.Is(err, ErrHalted) {
			res.State = st
			return res, nil
		}
		if err != nil {
			return res, err
		}

		res.Steps++
		res.State = st
		if st.Stage.Terminal() {
			// DONE, PAUSED_QUOTA or REJECTED: the loop must stop here,
			// never spin waiting for quota or operator action.
			break
		}
	}

	if res.State == nil {
		st, err := o.store.Load()
		if err != nil {
			return res, err
		}
		res.State = st
	}
	return res, nil
}

// applyOutcome mutates st according to the runner's decision, enforcing
// the iteration invariant: no counter ever exceeds its configured limit.
func applyOutcome(st *State, o Outcome) error {
	if o.Quality != nil {
		q := *o.Quality
		if q.RequiredScore == 0 {
			q.RequiredScore = st.Quality.RequiredScore
		}
		st.Quality = q
	}

	key := st.Stage.CounterKey()
	switch o.Kind {
	case OutcomeAdvance:
		if !o.Next.Valid() {
			return fmt.Errorf("advance to unknown stage %q", o.Next)
		}
		prev := st.Stage
		st.Stage = o.Next
		// A counter only tracks attempts at its own stage; entering a new
		// budget resets it.
		if k := o.Next.CounterKey(); k != "" && k != prev.CounterKey() {
			st.Iteration[k] = 0
		}

	case OutcomeRetry:
		limit := st.LimitFor(st.Stage)
		if st.Iteration[key] >= limit {
			// The runner asked for a retry it no longer has budget for;
			// honoring it would breach the invariant.
			st.Stage = StageRejected
			st.RejectedReason = fmt.Sprintf("%s retry budget exhausted (%d/%d)", key, st.Iteration[key], limit)
			return nil
		}
		st.Iteration[key]++

	case OutcomeReject:
		st.Stage = StageRejected
		st.RejectedReason = o.Reason

	case OutcomePause:
		st.Stage = StagePausedQuota
		st.PausedReason = o.Reason

	default:
		return fmt.Errorf("unknown outcome kind %d", o.Kind)
	}
	return nil
}

func countersCopy(m map[string]int) map[string]int {
	dup := make(map[string]int, len(m))
	for k, v := range m {
		dup[k] = v
	}
	return dup
}
