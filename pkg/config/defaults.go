package config

import (
	"os"
	"time"

	"github.com/ccollicutt/sensortail/pkg/parser"
)

// Default values for configuration.
const (
	DefaultLogPath         = "data.log"
	DefaultListen          = "0.0.0.0:5000"
	DefaultLockTimeout     = 100 * time.Millisecond
	DefaultStreamInterval  = 2 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPoints       = 20
	DefaultChartTitle      = "Live Temperature & Humidity"
	DefaultSimInterval     = 2 * time.Second
	DefaultSimSeed         = 1
	DefaultPublishTimeout  = 10 * time.Second
)

// Environment variable names.
const (
	EnvLogPath  = "SENSORTAIL_LOG_PATH"
	EnvListen   = "SENSORTAIL_LISTEN"
	EnvLogLevel = "SENSORTAIL_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogPath:     DefaultLogPath,
		TailWindow:  parser.DefaultTailWindow,
		LockTimeout: Duration(DefaultLockTimeout),
		Server: ServerConfig{
			Listen:          DefaultListen,
			StreamInterval:  Duration(DefaultStreamInterval),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Chart: ChartConfig{
			Title:        DefaultChartTitle,
			PollInterval: Duration(DefaultPollInterval),
			MaxPoints:    DefaultMaxPoints,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Simulator: SimulatorConfig{
			Interval: Duration(DefaultSimInterval),
			Seed:     DefaultSimSeed,
		},
		Publishers: []PublisherConfig{},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if path := os.Getenv(EnvLogPath); path != "" {
		c.LogPath = path
	}
	if listen := os.Getenv(EnvListen); listen != "" {
		c.Server.Listen = listen
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}
