// Package cli provides the command-line interface for sensortail.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sensortail/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	return execute(NewRootCommand())
}

func execute(rootCmd *cobra.Command) int {
	commands.ExitCode = 0
	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sensortail",
		Short: "Serve the latest reading from a sensor log",
		Long: `sensortail tails a log written by a temperature and humidity sensor and
serves the most recent reading to a live browser chart.

The sensor appends lines of the form:

  T:25.5,H:62.1

Only the last line matters. Lines that do not parse are skipped and the
previous reading keeps being served.

Configuration is read from a YAML or TOML file (--config). Environment
variables SENSORTAIL_LOG_PATH, SENSORTAIL_LISTEN and SENSORTAIL_LOG_LEVEL
override the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(commands.FlagLogLevel, "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String(commands.FlagLogFormat, "auto", "Log format (auto|text|json)")

	// Add subcommands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewReadCommand())
	rootCmd.AddCommand(commands.NewSimulateCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
