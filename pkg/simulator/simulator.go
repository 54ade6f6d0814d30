// Package simulator appends synthetic sensor lines to a log file so the
// dashboard can be exercised without hardware.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/ccollicutt/sensortail/pkg/parser"
	"github.com/ccollicutt/sensortail/pkg/tailer"
)

const (
	// DefaultInterval is the delay between appended lines.
	DefaultInterval = 2 * time.Second

	// DefaultLockTimeout bounds how long an append waits for readers to
	// release the log lock.
	DefaultLockTimeout = time.Second

	minTemperature = 20.0
	maxTemperature = 30.0
	minHumidity    = 50.0
	maxHumidity    = 70.0

	lockRetryDelay = 10 * time.Millisecond
)

// Options configures a Simulator.
type Options struct {
	// Interval between lines. Zero uses DefaultInterval.
	Interval time.Duration

	// Count stops Run after this many lines. Zero runs until canceled.
	Count int

	// Seed makes the generated sequence reproducible.
	Seed int64

	// LockTimeout bounds the wait for the exclusive log lock. Zero uses
	// DefaultLockTimeout; negative disables locking.
	LockTimeout time.Duration

	Logger *slog.Logger
}

// Simulator writes lines of the form "T:<temp>,H:<humidity>".
type Simulator struct {
	path        string
	interval    time.Duration
	count       int
	lockTimeout time.Duration
	rng         *rand.Rand
	lock        *flock.Flock
	logger      *slog.Logger
}

// New creates a simulator appending to the log at path.
func New(path string, opts Options) *Simulator {
	s := &Simulator{
		path:        path,
		interval:    opts.Interval,
		count:       opts.Count,
		lockTimeout: opts.LockTimeout,
		rng:         rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)>>1|1)), // #nosec G404 -- synthetic data
		logger:      opts.Logger,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.lockTimeout == 0 {
		s.lockTimeout = DefaultLockTimeout
	}
	if s.lockTimeout > 0 {
		s.lock = flock.New(tailer.LockPath(path))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// FormatLine renders a sample in the log's line format.
func FormatLine(temperature, humidity float64) string {
	return fmt.Sprintf("%s%.1f,H:%.1f", parser.TemperaturePrefix, temperature, humidity)
}

// Next generates the next sample. Values are rounded to one decimal so
// the written line parses back to exactly the same numbers.
func (s *Simulator) Next() parser.Sample {
	t := tenths(minTemperature+s.rng.Float64()*(maxTemperature-minTemperature), maxTemperature)
	h := tenths(minHumidity+s.rng.Float64()*(maxHumidity-minHumidity), maxHumidity)
	return parser.Sample{
		Temperature: t,
		Humidity:    h,
		Raw:         FormatLine(t, h),
	}
}

// tenths rounds v to one decimal, keeping the result below hi.
func tenths(v, hi float64) float64 {
	r := math.Round(v*10) / 10
	if r >= hi {
		return (math.Ceil(hi*10) - 1) / 10
	}
	return r
}

// Append generates one sample and appends it to the log while holding the
// exclusive lock.
func (s *Simulator) Append(ctx context.Context) (parser.Sample, error) {
	sample := s.Next()

	unlock, err := s.acquireExclusive(ctx)
	if err != nil {
		return parser.Sample{}, err
	}
	defer unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G302 G304 -- configured log path
	if err != nil {
		return parser.Sample{}, fmt.Errorf("opening log %s: %w", s.path, err)
	}

	if _, err := f.WriteString(sample.Raw + "\n"); err != nil {
		_ = f.Close()
		return parser.Sample{}, fmt.Errorf("writing log %s: %w", s.path, err)
	}

	if err := f.Close(); err != nil {
		return parser.Sample{}, fmt.Errorf("closing log %s: %w", s.path, err)
	}

	return sample, nil
}

// Run appends a line immediately and then once per interval until ctx is
// canceled or Count lines have been written. Cancellation is not an error.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	written := 0
	for {
		sample, err := s.Append(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		written++
		s.logger.Debug("appended sample",
			slog.String("path", s.path),
			slog.String("line", sample.Raw),
			slog.Int("written", written),
		)

		if s.count > 0 && written >= s.count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Simulator) acquireExclusive(ctx context.Context) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	ok, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !ok {
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return nil, fmt.Errorf("locking %s: %w", s.lock.Path(), err)
	}

	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Debug("releasing log lock", slog.Any("error", err))
		}
	}, nil
}
