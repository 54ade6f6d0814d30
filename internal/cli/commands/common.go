package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sensortail/pkg/config"
	"github.com/ccollicutt/sensortail/pkg/logging"
	"github.com/ccollicutt/sensortail/pkg/reading"
	"github.com/ccollicutt/sensortail/pkg/tailer"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// Persistent flags registered on the root command.
const (
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
)

// SourceOptions selects the config file and log path shared by most commands.
type SourceOptions struct {
	ConfigPath string
	LogPath    string
}

func (o *SourceOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.ConfigPath, "config", "c", "", "Configuration file (YAML or TOML)")
	cmd.Flags().StringVar(&o.LogPath, "log-path", "", "Sensor log file (overrides config)")
}

// load reads the configuration and applies flag overrides.
func (o *SourceOptions) load(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, o.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.LogPath != "" {
		cfg.LogPath = o.LogPath
	}
	return cfg, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newLogger builds the process logger on the command's stderr. Root flags
// win over the config file.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if f := cmd.Flags().Lookup(FlagLogLevel); f != nil && f.Changed {
		opts.Level = f.Value.String()
	}
	if f := cmd.Flags().Lookup(FlagLogFormat); f != nil && f.Changed {
		opts.Format = f.Value.String()
	}
	return logging.New(cmd.ErrOrStderr(), opts)
}

// newTailer wires a tailer for cfg over a fresh store.
func newTailer(cfg *config.Config, logger *slog.Logger) *tailer.Tailer {
	store := reading.NewStore(reading.Default(time.Now()))
	return tailer.New(cfg.LogPath, store,
		tailer.WithWindow(cfg.TailWindow),
		tailer.WithLockTimeout(cfg.LockTimeout.Std()),
		tailer.WithLogger(logger),
	)
}
