package cmd

import (
	"errors"
	"fmt"

	"github.com/conveyordev/conveyor/pkg/pipeline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStepCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "step [directory]",
		Short: "Advance the pipeline by exactly one step",
		Long: `Load the project state, execute the current stage, apply the resulting
transition and persist it. Exactly one state mutation per invocation.

With --dry-run the transition is computed and logged without calling any
provider and without persisting anything.`,
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

			orch := pipeline.New(dir, cfg, providerClient(cfg))
			st, err := orch.Step(cmd.Context(), dryRun)
			if errors.Is(err, pipeline.ErrHalted) {
				fmt.Printf("pipeline already halted at %s\n", stageColor(st.Stage))
				return nil
			}
			if err != nil {
				return err
			}

			if dryRun {
				color.Yellow("dry run: nothing persisted")
			}
			printState(st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the transition without provider calls or persistence")
	return cmd
}
