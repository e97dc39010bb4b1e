package pipeline

import "context"

// IdeationRunner produces the initial product idea document. The project
// identifier is assigned at init time and becomes immutable once this
// stage completes.
type IdeationRunner struct{}

func (r *IdeationRunner) Stage() Stage {
	return StageIdeation
}

func (r *IdeationRunner) Execute(ctx context.Context, step *StepContext) (Outcome, error) {
	if step.DryRun {
		step.Log.Info("dry run: would generate the idea document")
		return Advance(StagePlanningDraft, "ideation (dry run)"), nil
	}

	out, forced, err := step.invoke(ctx, TaskClassPrimary, ideationPrompt(step.State.Idea))
	if err != nil {
		return Outcome{}, err
	}
	if forced != nil {
		return *forced, nil
	}

	if err := step.WriteArtifact("01-idea.md", out); err != nil {
		return Outcome{}, err
	}
	return Advance(StagePlanningDraft, "generated idea document"), nil
}
