// Package tailer reads the most recent line of an append-only sensor log and
// publishes it into a reading.Store.
package tailer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/ccollicutt/sensortail/pkg/parser"
	"github.com/ccollicutt/sensortail/pkg/reading"
)

// DefaultLockTimeout bounds how long a refresh waits for the producer's lock.
const DefaultLockTimeout = 100 * time.Millisecond

const lockRetryDelay = 10 * time.Millisecond

// LockPath returns the advisory lock file shared by readers and writers of
// the log at path.
func LockPath(path string) string {
	return path + ".lock"
}

// Tailer refreshes a reading.Store from the last line of a log file.
// Refresh is safe for concurrent use; calls are serialized so capture times
// never go backwards.
type Tailer struct {
	path        string
	store       *reading.Store
	window      int64
	lockTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu       sync.Mutex
	lock     *flock.Flock
	lastLine string
}

// Option configures a Tailer.
type Option func(*Tailer)

// WithWindow sets how many trailing bytes are read (default parser.DefaultTailWindow).
// A value <= 0 reads the whole file.
func WithWindow(n int64) Option {
	return func(t *Tailer) {
		t.window = n
	}
}

// WithLockTimeout sets how long to wait for the shared lock. Zero disables locking.
func WithLockTimeout(d time.Duration) Option {
	return func(t *Tailer) {
		if d >= 0 {
			t.lockTimeout = d
		}
	}
}

// WithClock replaces time.Now as the source of capture times.
func WithClock(now func() time.Time) Option {
	return func(t *Tailer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger used for lock diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tailer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a Tailer for the log at path, writing into store.
func New(path string, store *reading.Store, opts ...Option) *Tailer {
	t := &Tailer{
		path:        path,
		store:       store,
		window:      parser.DefaultTailWindow,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.lockTimeout > 0 {
		t.lock = flock.New(LockPath(path))
	}
	return t
}

// Path returns the log file path.
func (t *Tailer) Path() string {
	return t.path
}

// Store returns the store the tailer writes into.
func (t *Tailer) Store() *reading.Store {
	return t.store
}

// Refresh reads the last non-empty line of the log and, if it parses,
// replaces the stored reading. Every other outcome leaves the store as it was.
func (t *Tailer) Refresh(ctx context.Context) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return failed(err, "")
	}

	f, err := os.Open(t.path) // #nosec G304 -- configured log path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failed(fmt.Errorf("%w: %s", ErrLogNotFound, t.path), "")
		}
		return failed(fmt.Errorf("opening log %s: %w", t.path, err), "")
	}
	defer f.Close()

	unlock := t.acquireShared(ctx)
	line, err := parser.ReadLastLine(f, t.window)
	unlock()
	if err != nil {
		return failed(err, "")
	}

	if line == "" {
		return skipped(ReasonEmpty, "")
	}

	sample, err := parser.ParseLine(line)
	if errors.Is(err, parser.ErrFormatMismatch) {
		return skipped(ReasonFormatMismatch, line)
	}
	if err != nil {
		return failed(err, line)
	}

	r := reading.Reading{
		Temperature: sample.Temperature,
		Humidity:    sample.Humidity,
		CapturedAt:  t.now(),
	}
	t.store.Replace(r)

	changed := sample.Raw != t.lastLine
	t.lastLine = sample.Raw

	return Result{
		Status:  StatusOK,
		Reading: r,
		Line:    sample.Raw,
		Changed: changed,
	}
}

// acquireShared takes the shared lock, waiting at most lockTimeout. When the
// lock cannot be taken the read proceeds unlocked, since producers that do
// not use the lock file must still be readable.
func (t *Tailer) acquireShared(ctx context.Context) func() {
	if t.lock == nil {
		return func() {}
	}

	lockCtx, cancel := context.WithTimeout(ctx, t.lockTimeout)
	defer cancel()

	ok, err := t.lock.TryRLockContext(lockCtx, lockRetryDelay)
	if err != nil || !ok {
		t.logger.Debug("reading log without lock",
			slog.String("lock", t.lock.Path()),
			slog.Any("error", err),
		)
		return func() {}
	}

	return func() {
		if err := t.lock.Unlock(); err != nil {
			t.logger.Debug("releasing log lock", slog.Any("error", err))
		}
	}
}
