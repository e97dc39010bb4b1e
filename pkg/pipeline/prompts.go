package pipeline

import "fmt"

func ideationPrompt(idea string) string {
	seed := idea
	if seed == "" {
		seed = "Propose a small, useful software product with a clear audience."
	}
	return fmt.Sprintf(`You are the ideation stage of an automated delivery pipeline.

Seed: %s

Produce a concise product idea document with: problem statement, target
users, core features (max 5), and success criteria. Output markdown only.`, seed)
}

func planningDraftPrompt(idea string) string {
	return fmt.Sprintf(`You are the planning stage of an automated delivery pipeline.

Idea under development:
%s

Produce an implementation plan: milestones, component breakdown, risks,
and acceptance criteria per milestone. Output markdown only.`, idea)
}

func planningReviewPrompt(idea string) string {
	return fmt.Sprintf(`You are an independent reviewer of an implementation plan for:
%s

Evaluate the most recent plan for completeness, feasibility and risk
coverage. End your review with a line of the form "score: N" where N is
a number from 0 to 10.`, idea)
}

func devPrompt(idea string) string {
	return fmt.Sprintf(`You are the development stage of an automated delivery pipeline.

Idea under development:
%s

Implement the next milestone of the approved plan. Summarize what was
built, files touched, and anything deferred. Output markdown only.`, idea)
}

func qaPrompt(idea string) string {
	return fmt.Sprintf(`You are the QA stage of an automated delivery pipeline.

Idea under development:
%s

Assess the latest development iteration: run through the acceptance
criteria and report defects. End your report with a single line "verdict:
PASS" or "verdict: FAIL".`, idea)
}
