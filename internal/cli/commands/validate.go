package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sensortail/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a sensortail configuration file without starting the server.

Checks:
  - YAML or TOML syntax
  - Durations, log level and format
  - Publisher type-specific requirements
  - Log file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(commandContext(cmd), configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Log path:   %s\n", cfg.LogPath)
	fmt.Fprintf(out, "  Listen:     %s\n", cfg.Server.Listen)
	fmt.Fprintf(out, "  Publishers: %d\n", len(cfg.Publishers))

	if len(cfg.Publishers) > 0 {
		fmt.Fprintf(out, "\nPublishers:\n")
		for i, p := range cfg.Publishers {
			fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, p.Type, p.DisplayName())
		}
	}

	if _, err := os.Stat(cfg.LogPath); err != nil {
		fmt.Fprintf(out, "\nWarning: log file %s is not readable yet: %v\n", cfg.LogPath, err)
	}

	return nil
}
