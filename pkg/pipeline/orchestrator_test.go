package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conveyordev/conveyor/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passingOutput satisfies both the review score parser and the QA
// verdict parser, so the default mock walks the happy path.
const passingOutput = "All good.\nscore: 9\nverdict: PASS"

func newTestOrchestrator(t *testing.T, dir string, client *provider.MockClient, cfg *Config) *Orchestrator {
	t.Helper()
	limiter := &provider.RateLimiter{
		MaxRetries: cfg.Limits.RateLimitMaxRetries,
		MaxWait:    10 * time.Millisecond,
		BaseWait:   time.Millisecond,
	}
	invoker := provider.NewInvoker(client, provider.NewRouter(cfg.Providers), limiter)
	return NewWithInvoker(dir, cfg, invoker)
}

func seedState(t *testing.T, dir string, cfg *Config, mutate func(*State)) *State {
	t.Helper()
	st := NewState(cfg, "a test idea")
	if mutate != nil {
		mutate(st)
	}
	require.NoError(t, NewStore(dir).Save(st))
	return st
}

// assertIterationInvariant checks that no counter exceeds its limit.
func assertIterationInvariant(t *testing.T, st *State) {
	t.Helper()
	for key, count := range st.Iteration {
		limit := st.Limits[key+"_max"]
		assert.LessOrEqual(t, count, limit, "iteration %s exceeds limit", key)
	}
}

func TestLoopHappyPathToDone(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient()
	client.Default = provider.Result{Status: provider.StatusOK, Output: passingOutput}

	seedState(t, dir, cfg, nil)
	orch := newTestOrchestrator(t, dir, client, cfg)

	res, err := orch.Loop(context.Background(), 10, false)
	require.NoError(t, err)

	assert.Equal(t, StageDone, res.State.Stage)
	assert.Equal(t, 5, res.Steps, "IDEATION through QA is five steps")
	assertIterationInvariant(t, res.State)

	recs, err := NewJournal(dir).Read()
	require.NoError(t, err)
	assert.Len(t, recs, 5)
	assert.Equal(t, string(StageIdeation), recs[0].Stage)
	assert.Equal(t, string(StageQA), recs[4].Stage)
}

func TestReviewRetriesThenRejects(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Limits.PlanningMaxIterations = 3
	client := provider.NewMockClient()
	client.Default = provider.Result{Status: provider.StatusOK, Output: "weak plan\nscore: 2"}

	seedState(t, dir, cfg, func(st *State) {
		st.Stage = StagePlanningReview
		st.Limits = cfg.LimitsMap()
	})
	orch := newTestOrchestrator(t, dir, client, cfg)

	res, err := orch.Loop(context.Background(), 20, false)
	require.NoError(t, err)

	// Three retries consume the planning budget, the fourth attempt
	// rejects. The project must not sit at PLANNING_REVIEW waiting for a
	// retry it will never get.
	assert.Equal(t, StageRejected, res.State.Stage)
	assert.Equal(t, 3, res.State.Iteration["planning"])
	assert.Equal(t, 4, res.Steps)
	assert.NotEmpty(t, res.State.RejectedReason)
	assertIterationInvariant(t, res.State)
}

func TestQuotaExhaustionPausesImmediately(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient(
		provider.Result{Status: provider.StatusQuotaExhausted, Message: "insufficient quota"},
	)

	seedState(t, dir, cfg, func(st *State) { st.Stage = StageDev })
	orch := newTestOrchestrator(t, dir, client, cfg)

	res, err := orch.Loop(context.Background(), 10, false)
	require.NoError(t, err)

	assert.Equal(t, StagePausedQuota, res.State.Stage)
	assert.Equal(t, 1, res.Steps, "the loop must stop on pause, not keep hoping quota returns")
	assert.Contains(t, res.State.PausedReason, "insufficient quota")

	alerts, err := NewAlertStore(dir).List()
	require.NoError(t, err)
	require.Len(t, alerts, 1, "exactly one alert per exhaustion event")
	assert.Contains(t, alerts[0].Alert.Reason, "insufficient quota")
	assert.NotNil(t, alerts[0].Alert.Snapshot)
	assert.Equal(t, StageDev, alerts[0].Alert.Snapshot.Stage)
}

func TestTransientRateLimitsDoNotConsumeIterations(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Limits.RateLimitMaxRetries = 3
	client := provider.NewMockClient(
		provider.Result{Status: provider.StatusRateLimited, Message: "429"},
		provider.Result{Status: provider.StatusRateLimited, Message: "429"},
	)
	client.Default = provider.Result{Status: provider.StatusOK, Output: "plan body"}

	seedState(t, dir, cfg, func(st *State) {
		st.Stage = StagePlanningDraft
		st.Limits = cfg.LimitsMap()
	})
	orch := newTestOrchestrator(t, dir, client, cfg)

	st, err := orch.Step(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, StagePlanningReview, st.Stage)
	assert.Equal(t, 0, st.Iteration["planning"], "absorbed rate limits must not consume the stage budget")
}

func TestFallbackModelAfterDefaultExhaustsRetries(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Limits.RateLimitMaxRetries = 1
	cfg.Providers[TaskClassPrimary] = provider.ClassConfig{Default: "model-a", Fallback: "model-b"}

	// model-a: first call rate limited, retry rate limited -> budget
	// exhausted; model-b answers.
	client := provider.NewMockClient(
		provider.Result{Status: provider.StatusRateLimited, Message: "429"},
		provider.Result{Status: provider.StatusRateLimited, Message: "429"},
		provider.Result{Status: provider.StatusOK, Output: "dev notes"},
	)

	seedState(t, dir, cfg, func(st *State) { st.Stage = StageDev })
	orch := newTestOrchestrator(t, dir, client, cfg)

	st, err := orch.Step(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, StageQA, st.Stage)
	require.Len(t, client.Calls, 3)
	assert.Equal(t, "model-a", client.Calls[0].Model)
	assert.Equal(t, "model-a", client.Calls[1].Model)
	assert.Equal(t, "model-b", client.Calls[2].Model)
}

func TestRateLimitExceededOnAllModelsCountsAsStageRetry(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Limits.RateLimitMaxRetries = 0
	cfg.Providers[TaskClassPrimary] = provider.ClassConfig{Default: "model-a", Fallback: "model-b"}

	client := provider.NewMockClient()
	client.Default = provider.Result{Status: provider.StatusRateLimited, Message: "429"}

	seedState(t, dir, cfg, func(st *State) { st.Stage = StageDev })
	orch := newTestOrchestrator(t, dir, client, cfg)

	st, err := orch.Step(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, StageDev, st.Stage, "exhausted retries retry the stage, not crash")
	assert.Equal(t, 1, st.Iteration["dev"])
}

func TestLoopMaxStepsGuardrail(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient()
	client.Default = provider.Result{Status: provider.StatusOK, Output: "weak\nscore: 1"}

	seedState(t, dir, cfg, func(st *State) { st.Stage = StagePlanningReview })
	orch := newTestOrchestrator(t, dir, client, cfg)

	res, err := orch.Loop(context.Background(), 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, StagePlanningReview, res.State.Stage)
}

func TestLoopZeroStepsTerminates(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient()

	seedState(t, dir, cfg, nil)
	orch := newTestOrchestrator(t, dir, client, cfg)

	res, err := orch.Loop(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Steps)
	require.NotNil(t, res.State)
	assert.Equal(t, StageIdeation, res.State.Stage)
	assert.Empty(t, client.Calls)
}

func TestLoopStopsOnTerminalState(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient()

	seedState(t, dir, cfg, func(st *State) { st.Stage = StageDone })
	orch := newTestOrchestrator(t, dir, client, cfg)

	res, err := orch.Loop(context.Background(), 10, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Steps)
	assert.Equal(t, StageDone, res.State.Stage)
}

func TestStepOnTerminalStateReturnsErrHalted(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient()

	seedState(t, dir, cfg, func(st *State) {
		st.Stage = StagePausedQuota
		st.PausedReason = "quota exhausted"
	})
	orch := newTestOrchestrator(t, dir, client, cfg)

	st, err := orch.Step(context.Background(), false)
	assert.ErrorIs(t, err, ErrHalted)
	require.NotNil(t, st)
	assert.Equal(t, StagePausedQuota, st.Stage)
}

func TestDryRunDoesNotPersistOrCallProviders(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient()

	seeded := seedState(t, dir, cfg, nil)
	orch := newTestOrchestrator(t, dir, client, cfg)

	preview, err := orch.Step(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, StagePlanningDraft, preview.Stage, "dry run still reports the transition it would take")
	assert.Empty(t, client.Calls, "dry run must not call providers")

	onDisk, err := NewStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, StageIdeation, onDisk.Stage)
	assert.Equal(t, seeded.Iteration, onDisk.Iteration)

	recs, err := NewJournal(dir).Read()
	require.NoError(t, err)
	assert.Empty(t, recs, "dry run must not journal")
}

func TestStepFailsFastWhenLockHeld(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient()

	seedState(t, dir, cfg, nil)
	orch := newTestOrchestrator(t, dir, client, cfg)

	lock, err := NewStore(dir).Acquire()
	require.NoError(t, err)
	defer lock.Release()

	_, err = orch.Step(context.Background(), false)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestResumeAfterInterruptionMatchesUninterruptedRun(t *testing.T) {
	cfg := DefaultConfig()

	run := func(dir string, legs []int) *State {
		seedState(t, dir, cfg, nil)
		var final *State
		for _, steps := range legs {
			// A fresh orchestrator per leg simulates a process restart
			// between persisted steps.
			client := provider.NewMockClient()
			client.Default = provider.Result{Status: provider.StatusOK, Output: passingOutput}
			orch := newTestOrchestrator(t, dir, client, cfg)
			res, err := orch.Loop(context.Background(), steps, false)
			require.NoError(t, err)
			final = res.State
		}
		return final
	}

	interrupted := run(t.TempDir(), []int{2, 1, 2})
	straight := run(t.TempDir(), []int{5})

	assert.Equal(t, straight.Stage, interrupted.Stage)
	assert.Equal(t, straight.Iteration, interrupted.Iteration)
	assert.Equal(t, straight.Quality.TestsPassed, interrupted.Quality.TestsPassed)
}

func TestLoopHonorsCancellationBetweenSteps(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient()

	seedState(t, dir, cfg, nil)
	orch := newTestOrchestrator(t, dir, client, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := orch.Loop(ctx, 10, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Steps)
}

func TestLoopNegativeMaxStepsRejected(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	orch := newTestOrchestrator(t, dir, provider.NewMockClient(), cfg)

	_, err := orch.Loop(context.Background(), -1, false)
	assert.Error(t, err)
}

func TestApplyOutcomeAdvanceResetsNextStageCounter(t *testing.T) {
	cfg := DefaultConfig()
	st := NewState(cfg, "idea")
	st.Stage = StageDev
	st.Iteration["dev"] = 2
	st.Iteration["qa"] = 1

	require.NoError(t, applyOutcome(st, Advance(StageQA, "dev done")))

	assert.Equal(t, StageQA, st.Stage)
	assert.Equal(t, 0, st.Iteration["qa"], "entering a stage resets its counter")
	assert.Equal(t, 2, st.Iteration["dev"], "the previous stage's counter is untouched")
}

func TestApplyOutcomeAdvanceWithinPlanningKeepsBudget(t *testing.T) {
	cfg := DefaultConfig()
	st := NewState(cfg, "idea")
	st.Stage = StagePlanningDraft
	st.Iteration["planning"] = 2

	require.NoError(t, applyOutcome(st, Advance(StagePlanningReview, "drafted")))

	assert.Equal(t, StagePlanningReview, st.Stage)
	assert.Equal(t, 2, st.Iteration["planning"], "the shared planning budget survives draft->review")
}

func TestApplyOutcomeRetryAtLimitRejects(t *testing.T) {
	cfg := DefaultConfig()
	st := NewState(cfg, "idea")
	st.Stage = StageQA
	st.Iteration["qa"] = st.Limits["qa_max"]

	require.NoError(t, applyOutcome(st, Retry("still failing")))

	assert.Equal(t, StageRejected, st.Stage)
	assert.Equal(t, st.Limits["qa_max"], st.Iteration["qa"], "counter must never pass its limit")
}

func TestErrorTaxonomyOtherProviderFailuresAreFatal(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient(
		provider.Result{Status: provider.StatusFailed, Message: "exec format error"},
	)

	seedState(t, dir, cfg, nil)
	orch := newTestOrchestrator(t, dir, client, cfg)

	_, err := orch.Step(context.Background(), false)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrHalted))

	// A failed step persists nothing.
	onDisk, loadErr := NewStore(dir).Load()
	require.NoError(t, loadErr)
	assert.Equal(t, StageIdeation, onDisk.Stage)
}
