package cmd

import (
	"fmt"

	"github.com/conveyordev/conveyor/pkg/pipeline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		idea      string
		projectID string
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a new project's initial pipeline state",
		Long: `Create the initial state for a new pipeline project in the given
directory (default: current directory). Writes state.yml at IDEATION and
a conveyor.yml with default limits and provider classes if none exists.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveProjectDir(args)
			if err != nil {
				return err
			}

			store := pipeline.NewStore(dir)
			if store.Exists() {
				return fmt.Errorf("project already initialized: %s", store.Path())
			}

			cfg, err := pipeline.LoadConfig(dir)
			if err != nil {
				return err
			}
			if !pipeline.ConfigExists(dir) {
				if err := pipeline.SaveConfig(dir, cfg); err != nil {
					return err
				}
			}

			st := pipeline.NewState(cfg, idea)
			if projectID != "" {
				st.ProjectID = projectID
			}
			if err := store.Save(st); err != nil {
				return err
			}

			color.Green("Initialized pipeline project %s", st.ProjectID)
			fmt.Printf("  state:  %s\n", store.Path())
			fmt.Printf("  stage:  %s\n", st.Stage)
			return nil
		},
	}

	cmd.Flags().StringVar(&idea, "idea", "", "seed idea or problem statement for the project")
	cmd.Flags().StringVar(&projectID, "project-id", "", "explicit project identifier (defaults to a generated UUID)")
	return cmd
}
