package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sensortail/pkg/logging"
	"github.com/ccollicutt/sensortail/pkg/output"
)

// ReadOptions holds command-line options for the read command.
type ReadOptions struct {
	SourceOptions
	Output  string
	Verbose bool
	Quiet   bool
}

// NewReadCommand creates the read command.
func NewReadCommand() *cobra.Command {
	opts := &ReadOptions{}

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Parse the last line of the sensor log once",
		Long: `Read the last line of the sensor log, parse it and print the result.

Exit codes:
  0 - A reading was parsed
  1 - The log was empty, unreadable or its last line did not parse
  2 - Configuration or runtime error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Include the raw line and timing")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Print only the values")

	return cmd
}

func runRead(cmd *cobra.Command, opts *ReadOptions) error {
	ctx := commandContext(cmd)

	cfg, err := opts.load(ctx)
	if err != nil {
		return err
	}

	formatter, ok := output.New(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if !ok {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}

	t := newTailer(cfg, logging.Discard())

	start := time.Now()
	res := t.Refresh(ctx)
	report := output.NewReport(cfg.LogPath, res, t.Store().Snapshot(), time.Since(start))

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if !report.OK() {
		ExitCode = 1
	}
	return nil
}
