package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// PlanningDraftRunner produces or refreshes the implementation plan.
type PlanningDraftRunner struct{}

func (r *PlanningDraftRunner) Stage() Stage {
	return StagePlanningDraft
}

func (r *PlanningDraftRunner) Execute(ctx context.Context, step *StepContext) (Outcome, error) {
	if step.DryRun {
		step.Log.Info("dry run: would draft the implementation plan")
		return Advance(StagePlanningReview, "planning draft (dry run)"), nil
	}

	out, forced, err := step.invoke(ctx, TaskClassPrimary, planningDraftPrompt(step.State.Idea))
	if err != nil {
		return Outcome{}, err
	}
	if forced != nil {
		return *forced, nil
	}

	if err := step.WriteArtifact("02-plan.md", out); err != nil {
		return Outcome{}, err
	}
	return Advance(StagePlanningReview, "drafted implementation plan"), nil
}

// PlanningReviewRunner scores the plan with an independent review model
// and advances only when the score clears the configured threshold. The
// threshold is stage-supplied configuration; the orchestrator never
// interprets scores itself.
type PlanningReviewRunner struct{}

func (r *PlanningReviewRunner) Stage() Stage {
	return StagePlanningReview
}

func (r *PlanningReviewRunner) Execute(ctx context.Context, step *StepContext) (Outcome, error) {
	required := step.State.Quality.RequiredScore

	if step.DryRun {
		// Decide from the last recorded score without calling a provider.
		if score := step.State.Quality.ReviewScore; score != nil && *score >= required {
			step.Log.WithField("score", *score).Info("dry run: recorded score clears threshold, would advance")
			return Advance(StageDev, "planning review (dry run)"), nil
		}
		step.Log.Info("dry run: no passing score recorded, would request another review")
		return step.retryOrReject("dry run: review score below threshold"), nil
	}

	out, forced, err := step.invoke(ctx, TaskClassReview, planningReviewPrompt(step.State.Idea))
	if err != nil {
		return Outcome{}, err
	}
	if forced != nil {
		return *forced, nil
	}

	if err := step.WriteArtifact("02-plan-review.md", out); err != nil {
		return Outcome{}, err
	}

	score, err := parseReviewScore(out)
	if err != nil {
		return step.retryOrReject(fmt.Sprintf("unparseable review: %v", err)), nil
	}

	quality := step.State.Quality
	quality.ReviewScore = &score

	var outcome Outcome
	if score >= required {
		outcome = Advance(StageDev, fmt.Sprintf("plan approved with score %.1f", score))
	} else {
		outcome = step.retryOrReject(fmt.Sprintf("review score %.1f below required %.1f", score, required))
	}
	outcome.Quality = &quality
	return outcome, nil
}

var (
	scoreLineRe = regexp.MustCompile(`(?i)(?:score|rating)\s*[:=]\s*(\d+(?:\.\d+)?)`)
	bareNumRe   = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// parseReviewScore extracts the reviewer's numeric score. It prefers an
// explicit "score: N" line and falls back to the last number in the
// output.
func parseReviewScore(output string) (float64, error) {
	if m := scoreLineRe.FindStringSubmatch(output); m != nil {
		return strconv.ParseFloat(m[1], 64)
	}
	nums := bareNumRe.FindAllString(output, -1)
	if len(nums) == 0 {
		return 0, fmt.Errorf("no score found in review output")
	}
	return strconv.ParseFloat(nums[len(nums)-1], 64)
}
