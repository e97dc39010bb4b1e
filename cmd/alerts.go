package cmd

import (
	"fmt"

	"github.com/conveyordev/conveyor/pkg/pipeline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and acknowledge quota alerts",
	}
	cmd.AddCommand(newAlertsListCmd(), newAlertsAckCmd())
	return cmd
}

func newAlertsListCmd() *cobra.Command {
	var dirFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending quota alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveProjectDir(argsFromDir(dirFlag))
			if err != nil {
				return err
			}
			alerts, err := pipeline.NewAlertStore(dir).List()
			if err != nil {
				return err
			}
			if len(alerts) == 0 {
				fmt.Println("no pending alerts")
				return nil
			}
			for _, af := range alerts {
				color.Yellow("%s", af.Name)
				fmt.Printf("  provider: %s (%s)\n", af.Alert.Provider, af.Alert.Model)
				fmt.Printf("  reason:   %s\n", af.Alert.Reason)
				fmt.Printf("  at:       %s\n", af.Alert.Timestamp.Format("2006-01-02 15:04:05 MST"))
				fmt.Printf("  action:   %s\n", af.Alert.RequiredAction)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dirFlag, "dir", "d", "", "project directory (default: current directory)")
	return cmd
}

func newAlertsAckCmd() *cobra.Command {
	var dirFlag string

	cmd := &cobra.Command{
		Use:   "ack <alert-file>",
		Short: "Acknowledge and remove a quota alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveProjectDir(argsFromDir(dirFlag))
			if err != nil {
				return err
			}
			if err := pipeline.NewAlertStore(dir).Ack(args[0]); err != nil {
				return err
			}
			color.Green("acknowledged %s", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&dirFlag, "dir", "d", "", "project directory (default: current directory)")
	return cmd
}

func argsFromDir(dir string) []string {
	if dir == "" {
		return nil
	}
	return []string{dir}
}
