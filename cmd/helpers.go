package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/conveyordev/conveyor/pkg/pipeline"
	"github.com/conveyordev/conveyor/pkg/provider"
	"github.com/fatih/color"
	"github.com/spf13/viper"
)

// resolveProjectDir returns the project directory from args, defaulting
// to the current directory.
func resolveProjectDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project directory: %w", err)
	}
	return abs, nil
}

// providerClient selects the provider client for a project. Setting
// CONVEYOR_MOCK_PROVIDER substitutes the scripted mock, used by tests
// and demos that must not touch a real provider.
func providerClient(cfg *pipeline.Config) provider.Client {
	if os.Getenv("CONVEYOR_MOCK_PROVIDER") != "" {
		return provider.NewMockClient()
	}
	command := cfg.Command
	if command == "" {
		command = viper.GetString("provider.command")
	}
	return provider.NewCommandClient(command, nil)
}

// stageColor renders a stage with a status color.
func stageColor(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageDone:
		return color.GreenString(string(stage))
	case pipeline.StagePausedQuota:
		return color.YellowString(string(stage))
	case pipeline.StageRejected:
		return color.RedString(string(stage))
	default:
		return color.CyanString(string(stage))
	}
}

// printState writes a one-screen summary of the state to stdout.
func printState(st *pipeline.State) {
	fmt.Printf("project:  %s\n", st.ProjectID)
	fmt.Printf("stage:    %s\n", stageColor(st.Stage))
	for _, key := range []string{"ideation", "planning", "dev", "qa"} {
		fmt.Printf("  %-9s %d/%d\n", key+":", st.Iteration[key], st.Limits[key+"_max"])
	}
	if st.Quality.ReviewScore != nil {
		fmt.Printf("review:   %.1f (required %.1f)\n", *st.Quality.ReviewScore, st.Quality.RequiredScore)
	}
	if st.Quality.TestsPassed != nil {
		fmt.Printf("tests:    passed=%t\n", *st.Quality.TestsPassed)
	}
	if !st.LastUpdated.IsZero() {
		fmt.Printf("updated:  %s\n", st.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	}
}
