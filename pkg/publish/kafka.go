package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ccollicutt/sensortail/pkg/config"
	"github.com/ccollicutt/sensortail/pkg/reading"
)

// kafkaWriter is the subset of *kafka.Writer used for publishing.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each reading as one message to a topic.
type KafkaPublisher struct {
	name    string
	topic   string
	timeout time.Duration
	writer  kafkaWriter
}

// NewKafka creates a Kafka publisher. Brokers are dialed on the first write.
func NewKafka(cfg config.PublisherConfig) *KafkaPublisher {
	timeout := timeoutOrDefault(cfg.Timeout)
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: timeout,
	}
	return newKafkaPublisher(cfg, w)
}

func newKafkaPublisher(cfg config.PublisherConfig, w kafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{
		name:    cfg.DisplayName(),
		topic:   cfg.Topic,
		timeout: timeoutOrDefault(cfg.Timeout),
		writer:  w,
	}
}

// Name returns the publisher name.
func (p *KafkaPublisher) Name() string {
	return p.name
}

// Publish writes the reading JSON keyed by the publisher name.
func (p *KafkaPublisher) Publish(ctx context.Context, r reading.Reading) error {
	payload, err := Payload(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(p.name),
		Value: payload,
		Time:  r.CapturedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
