// Package server serves the latest sensor reading over HTTP: a JSON API, a
// WebSocket stream and the live chart page.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ccollicutt/sensortail/pkg/config"
	"github.com/ccollicutt/sensortail/pkg/metrics"
	"github.com/ccollicutt/sensortail/pkg/publish"
	"github.com/ccollicutt/sensortail/pkg/reading"
	"github.com/ccollicutt/sensortail/pkg/tailer"
)

// Options configures a Server.
type Options struct {
	Config    *config.Config
	Tailer    *tailer.Tailer
	Publisher *publish.Dispatcher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// AccessLog receives combined-format access log lines. Nil disables
	// access logging.
	AccessLog io.Writer
}

// Server is the HTTP front end over a Tailer.
type Server struct {
	cfg       *config.Config
	tailer    *tailer.Tailer
	publisher *publish.Dispatcher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	accessLog io.Writer
	page      *chartPage

	// mu guards closing, pending and workerStarted. Readings are queued for
	// a single worker so sinks see them in capture order.
	mu            sync.Mutex
	closing       bool
	workerStarted bool
	pending       chan reading.Reading
	publishing    sync.WaitGroup

	httpServer *http.Server
}

// New creates a server. Config and Tailer are required.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if opts.Tailer == nil {
		return nil, errors.New("server: tailer is required")
	}

	page, err := newChartPage(opts.Config.Chart)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       opts.Config,
		tailer:    opts.Tailer,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		accessLog: opts.AccessLog,
		page:      page,
		pending:   make(chan reading.Reading, publishQueueSize),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID)

	r.Handle("/", s.route("/", s.handleIndex)).Methods(http.MethodGet)
	r.Handle("/api/data", s.route("/api/data", s.handleData)).Methods(http.MethodGet)
	r.Handle("/api/stream", s.route("/api/stream", s.handleStream)).Methods(http.MethodGet)
	r.Handle("/healthz", s.route("/healthz", handleHealth)).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
	)(h)
	if s.accessLog != nil {
		h = handlers.LoggingHandler(s.accessLog, h)
	}
	return h
}

func (s *Server) route(name string, fn http.HandlerFunc) http.Handler {
	return s.metrics.WrapHandler(name, fn)
}

// Run listens on the configured address and serves until ctx is canceled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.Info("serving readings",
		slog.String("addr", ln.Addr().String()),
		slog.String("log_path", s.tailer.Path()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting connections and waits for in-flight requests and
// publisher deliveries, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.stopPublishing()

	done := make(chan struct{})
	go func() {
		s.publishing.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown timed out waiting for publishers")
	}

	s.logger.Info("server stopped")
	return err
}
