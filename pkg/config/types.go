// Package config provides configuration loading and validation for sensortail.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure loaded from YAML or TOML.
type Config struct {
	// LogPath is the append-only sensor log to tail.
	LogPath string `yaml:"log_path" toml:"log_path"`

	// TailWindow is how many trailing bytes of the log are read to find the
	// last line. Zero selects the default.
	TailWindow int64 `yaml:"tail_window,omitempty" toml:"tail_window,omitempty"`

	// LockTimeout bounds the wait for the producer's advisory lock.
	// Zero disables locking.
	LockTimeout Duration `yaml:"lock_timeout" toml:"lock_timeout"`

	Server     ServerConfig      `yaml:"server" toml:"server"`
	Chart      ChartConfig       `yaml:"chart" toml:"chart"`
	Log        LogConfig         `yaml:"log" toml:"log"`
	Simulator  SimulatorConfig   `yaml:"simulator" toml:"simulator"`
	Publishers []PublisherConfig `yaml:"publishers,omitempty" toml:"publishers,omitempty"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	// Listen is the host:port the server binds to.
	Listen string `yaml:"listen" toml:"listen"`

	// StreamInterval is how often /api/stream pushes a fresh reading.
	StreamInterval Duration `yaml:"stream_interval" toml:"stream_interval"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// ChartConfig controls the browser chart page.
type ChartConfig struct {
	Title        string   `yaml:"title" toml:"title"`
	PollInterval Duration `yaml:"poll_interval" toml:"poll_interval"`
	MaxPoints    int      `yaml:"max_points" toml:"max_points"`
}

// LogConfig controls the service logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // auto, text, json
}

// SimulatorConfig controls the built-in sensor producer.
type SimulatorConfig struct {
	Interval Duration `yaml:"interval" toml:"interval"`
	Seed     int64    `yaml:"seed" toml:"seed"`

	// Count stops the simulator after this many lines. Zero runs until stopped.
	Count int `yaml:"count,omitempty" toml:"count,omitempty"`
}

// PublisherType selects a publisher implementation.
type PublisherType string

const (
	PublisherWebhook PublisherType = "webhook"
	PublisherRedis   PublisherType = "redis"
	PublisherMQTT    PublisherType = "mqtt"
	PublisherKafka   PublisherType = "kafka"
)

// PublisherConfig defines a sink notified when a new reading is parsed.
type PublisherConfig struct {
	// Name identifies the publisher in logs and metrics. Defaults to the type.
	Name string        `yaml:"name,omitempty" toml:"name,omitempty"`
	Type PublisherType `yaml:"type" toml:"type"`

	// Webhook fields
	URL   string `yaml:"url,omitempty" toml:"url,omitempty"`
	Token string `yaml:"token,omitempty" toml:"token,omitempty"`

	// Redis fields
	Addr    string `yaml:"addr,omitempty" toml:"addr,omitempty"`
	DB      int    `yaml:"db,omitempty" toml:"db,omitempty"`
	Channel string `yaml:"channel,omitempty" toml:"channel,omitempty"`

	// MQTT fields
	Broker string `yaml:"broker,omitempty" toml:"broker,omitempty"`

	// Kafka fields
	Brokers []string `yaml:"brokers,omitempty" toml:"brokers,omitempty"`

	// Topic is shared by MQTT and Kafka.
	Topic string `yaml:"topic,omitempty" toml:"topic,omitempty"`

	// Username and Password are used by Redis and MQTT.
	Username string `yaml:"username,omitempty" toml:"username,omitempty"`
	Password string `yaml:"password,omitempty" toml:"password,omitempty"`

	// Timeout bounds a single delivery. Defaults to 10s.
	Timeout Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// Duration is a time.Duration written as a string such as "2s" in config files.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String formats the duration like time.Duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}
