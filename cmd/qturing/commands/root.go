package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// settings merges flags, QTURING_* environment variables and the config file.
	settings = viper.New()
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qturing",
		Short: "qturing - amplitude-weighted Turing machine simulator",
		Long: `qturing evolves a nondeterministic Turing machine as a sparse vector of
complex amplitudes over configurations, interferes colliding branches and
amplifies accepting configurations with oracle and diffusion operators.

Commands:
  - run:      adaptive search for an accept state with growing step budgets
  - batch:    search several inputs in parallel
  - validate: check a machine definition file
  - report:   summarize an amplitude log written by run`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initSettings()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newBatchCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newReportCommand())

	return rootCmd
}

func initSettings() error {
	settings.SetEnvPrefix("QTURING")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	if configPath == "" {
		return nil
	}

	settings.SetConfigFile(configPath)
	if err := settings.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return nil
}
