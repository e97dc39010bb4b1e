package pipeline

import "context"

// DevRunner performs one development iteration against the approved
// plan.
type DevRunner struct{}

func (r *DevRunner) Stage() Stage {
	return StageDev
}

func (r *DevRunner) Execute(ctx context.Context, step *StepContext) (Outcome, error) {
	if step.DryRun {
		step.Log.Info("dry run: would run a development iteration")
		return Advance(StageQA, "development iteration (dry run)"), nil
	}

	out, forced, err := step.invoke(ctx, TaskClassPrimary, devPrompt(step.State.Idea))
	if err != nil {
		return Outcome{}, err
	}
	if forced != nil {
		return *forced, nil
	}

	if err := step.WriteArtifact("03-dev-notes.md", out); err != nil {
		return Outcome{}, err
	}
	return Advance(StageQA, "completed development iteration"), nil
}
