package config

import (
	"os"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/connect"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Connection ConnectionConfig `yaml:"connection"`
	Sim        SimConfig        `yaml:"sim"`
}

type DiscoveryConfig struct {
	ServiceType string `yaml:"service_type"`
	Domain      string `yaml:"domain"`
	NamePrefix  string `yaml:"name_prefix"`
}

// ConnectionConfig holds the stream and retry knobs. Delays are plain
// millisecond integers so the file stays portable.
type ConnectionConfig struct {
	Scheme            string  `yaml:"scheme"`
	Path              string  `yaml:"path"`
	DialTimeoutMS     int     `yaml:"dial_timeout_ms"`
	DiscoveryRetryMS  int     `yaml:"discovery_retry_ms"`
	InitialBackoffMS  int     `yaml:"initial_backoff_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	MaxBackoffMS      int     `yaml:"max_backoff_ms"`
	MaxAttempts       int     `yaml:"max_attempts"`
}

// SimConfig configures the robotsim development backend.
type SimConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	RobotName           string `yaml:"robot_name"`
	TelemetryIntervalMS int    `yaml:"telemetry_interval_ms"`
}

// Default returns the settings matching the robot backend's advertised
// service.
func Default() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			ServiceType: "_umebotlogics._tcp",
			Domain:      "local.",
			NamePrefix:  "UmebotLogics",
		},
		Connection: ConnectionConfig{
			Scheme:            "ws",
			Path:              "/ws_bidirectional",
			DialTimeoutMS:     8000,
			DiscoveryRetryMS:  3000,
			InitialBackoffMS:  2000,
			BackoffMultiplier: 2.0,
			MaxBackoffMS:      15000,
			MaxAttempts:       5,
		},
		Sim: SimConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			RobotName:           "UmebotLogicsWebSocket",
			TelemetryIntervalMS: 5000,
		},
	}
}

// Load reads path and overlays it on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads path, falling back to the defaults when the file does
// not exist. Any other error is still reported.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Connect converts the file settings into the connectivity layer's config.
func (c *Config) Connect() connect.Config {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return connect.Config{
		ServiceType:    c.Discovery.ServiceType,
		Domain:         c.Discovery.Domain,
		NamePrefix:     c.Discovery.NamePrefix,
		Scheme:         c.Connection.Scheme,
		Path:           c.Connection.Path,
		DialTimeout:    ms(c.Connection.DialTimeoutMS),
		DiscoveryRetry: ms(c.Connection.DiscoveryRetryMS),
		Backoff: connect.Backoff{
			Initial:     ms(c.Connection.InitialBackoffMS),
			Multiplier:  c.Connection.BackoffMultiplier,
			Max:         ms(c.Connection.MaxBackoffMS),
			MaxAttempts: c.Connection.MaxAttempts,
		},
		SubscriberBuffer: 64,
	}
}
