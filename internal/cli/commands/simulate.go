package commands

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sensortail/pkg/simulator"
)

// SimulateOptions holds command-line options for the simulate command.
type SimulateOptions struct {
	SourceOptions
	Interval time.Duration
	Count    int
	Seed     int64
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand() *cobra.Command {
	opts := &SimulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Append synthetic sensor readings to the log",
		Long: `Append lines of the form T:<temperature>,H:<humidity> to the log file,
standing in for a real sensor.

Temperatures are drawn from [20, 30) and humidity from [50, 70), both with
one decimal. Each append holds an exclusive lock on <log>.lock so readers
never see a partial line.

Example:
  sensortail simulate --log-path data.log --interval 1s
  sensortail simulate --count 10 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "Delay between lines (overrides config)")
	cmd.Flags().IntVar(&opts.Count, "count", -1, "Stop after this many lines, 0 for unlimited (overrides config)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "Random seed (overrides config)")

	return cmd
}

func runSimulate(cmd *cobra.Command, opts *SimulateOptions) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.load(ctx)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	simOpts := simulator.Options{
		Interval:    cfg.Simulator.Interval.Std(),
		Count:       cfg.Simulator.Count,
		Seed:        cfg.Simulator.Seed,
		LockTimeout: simulator.DefaultLockTimeout,
		Logger:      logger,
	}
	if opts.Interval > 0 {
		simOpts.Interval = opts.Interval
	}
	if opts.Count >= 0 {
		simOpts.Count = opts.Count
	}
	if cmd.Flags().Changed("seed") {
		simOpts.Seed = opts.Seed
	}
	if cfg.LockTimeout == 0 {
		simOpts.LockTimeout = -1
	}

	logger.Info("simulating sensor",
		slog.String("log_path", cfg.LogPath),
		slog.Duration("interval", simOpts.Interval),
		slog.Int("count", simOpts.Count),
		slog.Int64("seed", simOpts.Seed),
	)

	if err := simulator.New(cfg.LogPath, simOpts).Run(ctx); err != nil {
		return err
	}

	logger.Info("simulator stopped")
	return nil
}
