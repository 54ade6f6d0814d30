package publish

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ccollicutt/sensortail/pkg/config"
	"github.com/ccollicutt/sensortail/pkg/reading"
)

// mqttClient is the subset of mqtt.Client used for publishing.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes readings to an MQTT topic with QoS 0.
type MQTTPublisher struct {
	name    string
	topic   string
	timeout time.Duration
	client  mqttClient
}

// NewMQTT connects to the broker and returns a publisher. Lost connections
// are re-established by the client in the background.
func NewMQTT(cfg config.PublisherConfig) (*MQTTPublisher, error) {
	timeout := timeoutOrDefault(cfg.Timeout)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("sensortail-" + uuid.NewString()).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(timeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connecting to %s: timed out after %s", cfg.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, err)
	}

	return newMQTTPublisher(cfg, client), nil
}

func newMQTTPublisher(cfg config.PublisherConfig, client mqttClient) *MQTTPublisher {
	return &MQTTPublisher{
		name:    cfg.DisplayName(),
		topic:   cfg.Topic,
		timeout: timeoutOrDefault(cfg.Timeout),
		client:  client,
	}
}

// Name returns the publisher name.
func (p *MQTTPublisher) Name() string {
	return p.name
}

// Publish sends the reading JSON to the topic and waits for the send to
// complete, the timeout, or ctx, whichever comes first.
func (p *MQTTPublisher) Publish(ctx context.Context, r reading.Reading) error {
	payload, err := Payload(r)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.topic, 0, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("mqtt publish to %s: timed out after %s", p.topic, p.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight messages 250ms.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
