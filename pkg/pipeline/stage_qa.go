package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// QARunner evaluates the latest development iteration and finishes the
// pipeline when the automated checks pass. A failed verdict sends the
// project back through DEV, counted against the QA budget.
type QARunner struct{}

func (r *QARunner) Stage() Stage {
	return StageQA
}

func (r *QARunner) Execute(ctx context.Context, step *StepContext) (Outcome, error) {
	if step.DryRun {
		if passed := step.State.Quality.TestsPassed; passed != nil && *passed {
			step.Log.Info("dry run: recorded QA pass, would finish")
			return Advance(StageDone, "qa (dry run)"), nil
		}
		step.Log.Info("dry run: no recorded QA pass, would request another run")
		return step.retryOrReject("dry run: qa verdict not recorded as passing"), nil
	}

	out, forced, err := step.invoke(ctx, TaskClassReview, qaPrompt(step.State.Idea))
	if err != nil {
		return Outcome{}, err
	}
	if forced != nil {
		return *forced, nil
	}

	if err := step.WriteArtifact("04-qa-report.md", out); err != nil {
		return Outcome{}, err
	}

	verdict, err := parseVerdict(out)
	if err != nil {
		return step.retryOrReject(fmt.Sprintf("unparseable qa report: %v", err)), nil
	}

	quality := step.State.Quality
	quality.TestsPassed = &verdict

	var outcome Outcome
	if verdict {
		outcome = Advance(StageDone, "qa passed, pipeline complete")
	} else {
		outcome = step.retryOrReject("qa verdict: FAIL")
	}
	outcome.Quality = &quality
	return outcome, nil
}

// parseVerdict extracts the PASS/FAIL verdict from a QA report.
func parseVerdict(output string) (bool, error) {
	upper := strings.ToUpper(output)
	switch {
	case strings.Contains(upper, "VERDICT: PASS"):
		return true, nil
	case strings.Contains(upper, "VERDICT: FAIL"):
		return false, nil
	case strings.Contains(upper, "PASS") && !strings.Contains(upper, "FAIL"):
		return true, nil
	case strings.Contains(upper, "FAIL"):
		return false, nil
	}
	return false, fmt.Errorf("no verdict found in qa output")
}
