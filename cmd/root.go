package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool
)

// NewRootCmd builds the conveyor command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "conveyor",
		Short: "Unattended software-delivery pipeline driver",
		Long: `Conveyor drives a multi-stage software-delivery pipeline without human
intervention: an idea is discovered, planned, implemented and
quality-checked one controlled, persisted step at a time.

Each project lives in its own directory with a state file, a config
file, generated documents, a step journal and any pending quota alerts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "global config file (default ~/.conveyor.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	root.AddCommand(
		newInitCmd(),
		newStepCmd(),
		newLoopCmd(),
		newStatusCmd(),
		newAlertsCmd(),
		newVersionCmd(),
	)
	return root
}

// initConfig wires the global config file, environment and logging.
// Project-level settings live in each project's conveyor.yml; this layer
// only carries operator defaults like the provider command and log
// verbosity.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".conveyor")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CONVEYOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", false)
	viper.SetDefault("provider.command", "llm")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	level := logLevel
	if level == "" {
		level = viper.GetString("log.level")
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)

	if logJSON || viper.GetBool("log.json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
