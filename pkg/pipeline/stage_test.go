package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/conveyordev/conveyor/pkg/provider"
	"github.com/sirupsen/logrus"
)

func TestParseReviewScore(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    float64
		wantErr bool
	}{
		{"score line", "The plan is solid.\nscore: 8", 8, false},
		{"decimal score", "score: 7.5\n", 7.5, false},
		{"rating keyword", "Rating = 6", 6, false},
		{"mixed case", "SCORE: 9", 9, false},
		{"falls back to last number", "I'd put this plan at maybe 4 out of 10, so 4", 4, false},
		{"no number at all", "looks fine to me", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseReviewScore(tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseReviewScore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseReviewScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    bool
		wantErr bool
	}{
		{"explicit pass", "All checks green.\nverdict: PASS", true, false},
		{"explicit fail", "Two tests red.\nVerdict: FAIL", false, false},
		{"bare pass", "everything seems to pass", true, false},
		{"fail wins when both appear loosely", "tests pass except one failing case", false, false},
		{"no verdict", "report pending", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVerdict(tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVerdict() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseVerdict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newStepContext(t *testing.T, st *State, results ...provider.Result) (*StepContext, *provider.MockClient) {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	client := provider.NewMockClient(results...)
	limiter := &provider.RateLimiter{MaxRetries: 0, BaseWait: 1}
	return &StepContext{
		State:     st,
		Config:    cfg,
		Providers: provider.NewInvoker(client, provider.NewRouter(cfg.Providers), limiter),
		Quota:     NewQuotaGuard(NewAlertStore(dir)),
		Log:       logrus.WithField("test", t.Name()),
		Dir:       dir,
	}, client
}

func TestPlanningReviewRunnerPassingScoreAdvances(t *testing.T) {
	st := NewState(DefaultConfig(), "idea")
	st.Stage = StagePlanningReview
	step, _ := newStepContext(t, st, provider.Result{Status: provider.StatusOK, Output: "solid plan\nscore: 8"})

	outcome, err := (&PlanningReviewRunner{}).Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.Kind != OutcomeAdvance || outcome.Next != StageDev {
		t.Errorf("outcome = %s -> %s, want advance to DEV", outcome.Kind, outcome.Next)
	}
	if outcome.Quality == nil || outcome.Quality.ReviewScore == nil || *outcome.Quality.ReviewScore != 8 {
		t.Error("outcome should carry the parsed review score")
	}

	// The review report is written as an artifact.
	if _, err := os.Stat(filepath.Join(step.Dir, "docs", "02-plan-review.md")); err != nil {
		t.Errorf("review artifact missing: %v", err)
	}
}

func TestPlanningReviewRunnerLowScoreRetries(t *testing.T) {
	st := NewState(DefaultConfig(), "idea")
	st.Stage = StagePlanningReview
	step, _ := newStepContext(t, st, provider.Result{Status: provider.StatusOK, Output: "needs work\nscore: 3"})

	outcome, err := (&PlanningReviewRunner{}).Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.Kind != OutcomeRetry {
		t.Errorf("outcome = %s, want retry", outcome.Kind)
	}
}

func TestQARunnerFailVerdictRetries(t *testing.T) {
	st := NewState(DefaultConfig(), "idea")
	st.Stage = StageQA
	step, _ := newStepContext(t, st, provider.Result{Status: provider.StatusOK, Output: "verdict: FAIL"})

	outcome, err := (&QARunner{}).Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.Kind != OutcomeRetry {
		t.Errorf("outcome = %s, want retry", outcome.Kind)
	}
	if outcome.Quality == nil || outcome.Quality.TestsPassed == nil || *outcome.Quality.TestsPassed {
		t.Error("outcome should record the failed verdict")
	}
}

func TestIdeationRunnerWritesArtifact(t *testing.T) {
	st := NewState(DefaultConfig(), "a todo app")
	step, client := newStepContext(t, st, provider.Result{Status: provider.StatusOK, Output: "# Idea\n"})

	outcome, err := (&IdeationRunner{}).Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.Kind != OutcomeAdvance || outcome.Next != StagePlanningDraft {
		t.Errorf("outcome = %s -> %s, want advance to PLANNING_DRAFT", outcome.Kind, outcome.Next)
	}
	if _, err := os.Stat(filepath.Join(step.Dir, "docs", "01-idea.md")); err != nil {
		t.Errorf("idea artifact missing: %v", err)
	}
	if len(client.Calls) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(client.Calls))
	}
}

func TestRunnersCoverEveryActiveStage(t *testing.T) {
	table := Runners()
	for _, stage := range []Stage{StageIdeation, StagePlanningDraft, StagePlanningReview, StageDev, StageQA} {
		r, ok := table[stage]
		if !ok {
			t.Errorf("no runner for %s", stage)
			continue
		}
		if r.Stage() != stage {
			t.Errorf("runner for %s reports stage %s", stage, r.Stage())
		}
	}
	for _, stage := range []Stage{StageDone, StagePausedQuota, StageRejected} {
		if _, ok := table[stage]; ok {
			t.Errorf("terminal stage %s must not have a runner", stage)
		}
	}
}
