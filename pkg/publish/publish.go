// Package publish delivers freshly parsed readings to external sinks:
// webhooks, Redis pub/sub, MQTT and Kafka.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ccollicutt/sensortail/pkg/config"
	"github.com/ccollicutt/sensortail/pkg/metrics"
	"github.com/ccollicutt/sensortail/pkg/reading"
)

// Publisher delivers a reading to one sink.
// Implementations must be safe for concurrent use.
type Publisher interface {
	// Name identifies the publisher in logs and metrics.
	Name() string

	// Publish delivers the reading.
	Publish(ctx context.Context, r reading.Reading) error

	// Close releases connections held by the publisher.
	Close() error
}

// Payload encodes a reading the way every publisher sends it.
func Payload(r reading.Reading) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reading: %w", err)
	}
	return data, nil
}

// FromConfig builds publishers for every configured sink. Sinks that cannot
// be constructed are logged and skipped.
func FromConfig(cfgs []config.PublisherConfig, logger *slog.Logger) []Publisher {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := New(cfg)
		if err != nil {
			logger.Warn("publisher disabled",
				slog.String("publisher", cfg.DisplayName()),
				slog.String("type", string(cfg.Type)),
				slog.Any("error", err),
			)
			continue
		}
		pubs = append(pubs, p)
	}
	return pubs
}

// New builds a single publisher from its configuration.
func New(cfg config.PublisherConfig) (Publisher, error) {
	switch cfg.Type {
	case config.PublisherWebhook:
		return NewWebhook(cfg), nil
	case config.PublisherRedis:
		return NewRedis(cfg), nil
	case config.PublisherMQTT:
		return NewMQTT(cfg)
	case config.PublisherKafka:
		return NewKafka(cfg), nil
	default:
		return nil, fmt.Errorf("unknown publisher type %q", cfg.Type)
	}
}

// Dispatcher fans a reading out to every publisher.
type Dispatcher struct {
	publishers []Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewDispatcher creates a dispatcher. m may be nil.
func NewDispatcher(logger *slog.Logger, m *metrics.Metrics, publishers ...Publisher) *Dispatcher {
	return &Dispatcher{
		publishers: publishers,
		logger:     logger,
		metrics:    m,
	}
}

// Len returns the number of publishers.
func (d *Dispatcher) Len() int {
	return len(d.publishers)
}

// Publish sends r to every publisher. Failures are logged, counted and
// joined into the returned error; one failing sink does not stop the others.
func (d *Dispatcher) Publish(ctx context.Context, r reading.Reading) error {
	var errs []error
	for _, p := range d.publishers {
		start := time.Now()
		if err := p.Publish(ctx, r); err != nil {
			d.metrics.PublishError(p.Name())
			d.logger.Warn("publish failed",
				slog.String("publisher", p.Name()),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		d.logger.Debug("published reading",
			slog.String("publisher", p.Name()),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, p := range d.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func timeoutOrDefault(d config.Duration) time.Duration {
	if d <= 0 {
		return config.DefaultPublishTimeout
	}
	return d.Std()
}
