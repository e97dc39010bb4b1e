package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/conveyordev/conveyor/pkg/pipeline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLoopCmd() *cobra.Command {
	var (
		maxSteps int
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "loop [directory]",
		Short: "Run steps continuously until the pipeline halts",
		Long: `Repeat single steps until the project reaches DONE, pauses for quota,
is rejected, or the --max-steps guardrail is hit.

Interrupting with Ctrl-C cancels between steps; an in-flight provider
call is allowed to finish so the persisted state stays unambiguous.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveProjectDir(args)
			if err != nil {
				return err
			}
			cfg, err := pipeline.LoadConfig(dir)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orch := pipeline.New(dir, cfg, providerClient(cfg))
			res, err := orch.Loop(ctx, maxSteps, dryRun)
			if errors.Is(err, context.Canceled) {
				color.Yellow("interrupted after %d step(s)", res.Steps)
				err = nil
			}
			if err != nil {
				return err
			}

			fmt.Printf("ran %d step(s)\n", res.Steps)
			if res.State != nil {
				printState(res.State)
				switch res.State.Stage {
				case pipeline.StagePausedQuota:
					color.Yellow("paused for quota: %s", res.State.PausedReason)
					color.Yellow("see `conveyor alerts list` for the required action")
				case pipeline.StageRejected:
					color.Red("rejected: %s", res.State.RejectedReason)
				case pipeline.StageDone:
					color.Green("pipeline complete")
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxSteps, "max-steps", 50, "maximum number of steps before the loop stops")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute transitions without provider calls or persistence")
	return cmd
}
