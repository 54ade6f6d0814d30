package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sensortail/pkg/metrics"
	"github.com/ccollicutt/sensortail/pkg/publish"
	"github.com/ccollicutt/sensortail/pkg/server"
)

// ServeOptions holds command-line options for the serve command.
type ServeOptions struct {
	SourceOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest reading and the live chart",
		Long: `Serve the most recent sensor reading over HTTP.

Every request to /api/data re-reads the last line of the log file. Lines that
cannot be parsed are ignored and the previous reading is served instead.

Endpoints:
  /            live chart
  /api/data    latest reading as JSON
  /api/stream  latest reading pushed over a WebSocket
  /healthz     liveness
  /metrics     Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "Listen address (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.load(ctx)
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	dispatcher := publish.NewDispatcher(logger, m, publish.FromConfig(cfg.Publishers, logger)...)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn("closing publishers", slog.Any("error", err))
		}
	}()

	srv, err := server.New(server.Options{
		Config:    cfg,
		Tailer:    newTailer(cfg, logger),
		Publisher: dispatcher,
		Metrics:   m,
		Logger:    logger,
		AccessLog: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	logger.Info("starting sensortail",
		slog.String("version", Version),
		slog.Int("publishers", dispatcher.Len()),
	)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
