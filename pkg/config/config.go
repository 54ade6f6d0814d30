package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/sensortail/pkg/logging"
	"github.com/ccollicutt/sensortail/pkg/parser"
)

// Load reads and validates a configuration file. An empty path yields the
// defaults with environment overrides applied. Files ending in .toml are
// decoded as TOML, everything else as YAML.
func Load(_ context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks a configuration for errors and fills zero values that
// have defaults.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.LogPath) == "" {
		return errors.New("log_path: a log file path is required")
	}

	if cfg.TailWindow < 0 {
		return fmt.Errorf("tail_window: must be >= 0, got %d", cfg.TailWindow)
	}
	if cfg.TailWindow == 0 {
		cfg.TailWindow = parser.DefaultTailWindow
	}

	if cfg.LockTimeout < 0 {
		return fmt.Errorf("lock_timeout: must be >= 0, got %s", cfg.LockTimeout)
	}

	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := validateChart(&cfg.Chart); err != nil {
		return fmt.Errorf("chart: %w", err)
	}

	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if err := validateSimulator(&cfg.Simulator); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}

	// Publishers are optional, but validate if present
	for i := range cfg.Publishers {
		if err := validatePublisher(&cfg.Publishers[i]); err != nil {
			return fmt.Errorf("publishers[%d] (%s): %w", i, cfg.Publishers[i].DisplayName(), err)
		}
	}

	return nil
}

func validateServer(s *ServerConfig) error {
	if s.Listen == "" {
		return errors.New("listen is required")
	}
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", s.Listen, err)
	}

	if s.StreamInterval <= 0 {
		s.StreamInterval = Duration(DefaultStreamInterval)
	}
	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	return nil
}

func validateChart(c *ChartConfig) error {
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.MaxPoints < 0 {
		return fmt.Errorf("max_points must be >= 0, got %d", c.MaxPoints)
	}
	if c.MaxPoints == 0 {
		c.MaxPoints = DefaultMaxPoints
	}
	if c.Title == "" {
		c.Title = DefaultChartTitle
	}
	return nil
}

func validateLog(l *LogConfig) error {
	if _, err := logging.ParseLevel(l.Level); err != nil {
		return err
	}

	switch strings.ToLower(l.Format) {
	case "":
		l.Format = logging.FormatAuto
	case logging.FormatAuto, logging.FormatText, logging.FormatJSON:
		// Valid
	default:
		return fmt.Errorf("invalid format %q (must be auto, text, or json)", l.Format)
	}
	return nil
}

func validateSimulator(s *SimulatorConfig) error {
	if s.Interval < 0 {
		return fmt.Errorf("interval must be >= 0, got %s", s.Interval)
	}
	if s.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", s.Count)
	}
	return nil
}

func validatePublisher(p *PublisherConfig) error {
	if p.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", p.Timeout)
	}
	if p.Timeout == 0 {
		p.Timeout = Duration(DefaultPublishTimeout)
	}

	p.Token = expandEnvVar(p.Token)
	p.Password = expandEnvVar(p.Password)

	switch p.Type {
	case PublisherWebhook:
		return validateWebhookURL(p.URL)
	case PublisherRedis:
		if p.Addr == "" {
			return errors.New("addr is required for redis publishers")
		}
		if _, _, err := net.SplitHostPort(p.Addr); err != nil {
			return fmt.Errorf("invalid addr %q: %w", p.Addr, err)
		}
		if p.Channel == "" {
			return errors.New("channel is required for redis publishers")
		}
	case PublisherMQTT:
		if p.Broker == "" {
			return errors.New("broker is required for mqtt publishers")
		}
		u, err := url.Parse(p.Broker)
		if err != nil {
			return fmt.Errorf("invalid broker: %w", err)
		}
		switch u.Scheme {
		case "tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts":
			// Valid
		default:
			return fmt.Errorf("broker scheme %q is not supported", u.Scheme)
		}
		if p.Topic == "" {
			return errors.New("topic is required for mqtt publishers")
		}
	case PublisherKafka:
		if len(p.Brokers) == 0 {
			return errors.New("brokers is required for kafka publishers")
		}
		if p.Topic == "" {
			return errors.New("topic is required for kafka publishers")
		}
	case "":
		return errors.New("type is required (webhook, redis, mqtt, or kafka)")
	default:
		return fmt.Errorf("invalid type %q (must be webhook, redis, mqtt, or kafka)", p.Type)
	}
	return nil
}

func validateWebhookURL(raw string) error {
	if raw == "" {
		return errors.New("url is required for webhook publishers")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}
	return nil
}

// DisplayName returns Name, falling back to the type.
func (p *PublisherConfig) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Type != "" {
		return string(p.Type)
	}
	return "unnamed"
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
