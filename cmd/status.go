package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/conveyordev/conveyor/cmd/status_tui"
	"github.com/conveyordev/conveyor/pkg/pipeline"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var (
		jsonOut bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "status [directory]",
		Short: "Show why the pipeline is (or is not) advancing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveProjectDir(args)
			if err != nil {
				return err
			}

			if watch {
				if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
					return fmt.Errorf("--watch requires a terminal")
				}
				return status_tui.Run(dir)
			}

			st, err := pipeline.NewStore(dir).Load()
			if err != nil {
				return err
			}
			alerts, err := pipeline.NewAlertStore(dir).List()
			if err != nil {
				return err
			}

			if jsonOut {
				data, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			printState(st)
			explainState(st, len(alerts))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output state as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "live view that follows the state file")
	return cmd
}

// explainState tells the operator why the project is where it is. The
// status surface must always be able to answer "why is this not
// advancing".
func explainState(st *pipeline.State, pendingAlerts int) {
	switch st.Stage {
	case pipeline.StageDone:
		color.Green("pipeline complete")
	case pipeline.StagePausedQuota:
		color.Yellow("paused for quota exhaustion: %s", st.PausedReason)
		if pendingAlerts > 0 {
			color.Yellow("%d pending alert(s); run `conveyor alerts list`", pendingAlerts)
		}
	case pipeline.StageRejected:
		color.Red("rejected: %s", st.RejectedReason)
	default:
		key := st.Stage.CounterKey()
		fmt.Printf("advancing: stage %s, attempt %d of %d for the %s budget\n",
			st.Stage, st.IterationFor(st.Stage), st.LimitFor(st.Stage), key)
	}
}
