package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

var (
	// ConfigPath is the variable which stores the config path command line parameter
	ConfigPath string

	// ErrInvalidConfig is returned when a parsed config fails validation
	ErrInvalidConfig = errors.New("invalid config")
)

// Config stores the config for the timeout service
type Config struct {
	// APIServerAddr address the HTTP transport listens on
	APIServerAddr string `yaml:"server_addr" json:"server_addr" env:"TIMEOUTD_SERVER_ADDR" env-default:"0.0.0.0:7074"`
	// SweepInterval is the period between two sweeps of the timeout store
	SweepInterval Duration `yaml:"sweep_interval" json:"sweep_interval" env:"TIMEOUTD_SWEEP_INTERVAL" env-default:"300ms"`
	// ReplyTimeout bounds a single reply send
	ReplyTimeout Duration `yaml:"reply_timeout" json:"reply_timeout" env:"TIMEOUTD_REPLY_TIMEOUT" env-default:"5s"`
	// StatsWindow number of lateness samples kept for /stats
	StatsWindow int `yaml:"stats_window" json:"stats_window" env:"TIMEOUTD_STATS_WINDOW" env-default:"1024"`
	// LogConfig configuration for logging
	LogConfig LogConfig `yaml:"log" json:"log"`
	// Kafka transport and reply sink
	Kafka KafkaConfig `yaml:"kafka" json:"kafka"`
	// Redis reply sink
	Redis RedisConfig `yaml:"redis" json:"redis"`
	// Postgres outbox reply sink
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// LogConfig stores the config for logging purpose
type LogConfig struct {
	// Path of the log file
	Path string `yaml:"path" json:"path" env:"TIMEOUTD_LOG_PATH"`
	// Format to log. Only `json` is currently supported, anything else is text
	Format string `yaml:"format" json:"format" env:"TIMEOUTD_LOG_FORMAT" env-default:"json"`
	// Level log level, one of panic|fatal|error|warn|warning|info|debug|trace
	Level string `yaml:"level" json:"level" env:"TIMEOUTD_LOG_LEVEL" env-default:"info"`
}

// KafkaConfig configures the kafka input topic and the kafka reply sink.
// Both are disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers" json:"brokers" env:"TIMEOUTD_KAFKA_BROKERS"`
	InputTopic string   `yaml:"input_topic" json:"input_topic" env:"TIMEOUTD_KAFKA_INPUT_TOPIC" env-default:"timeoutd.requests"`
	GroupID    string   `yaml:"group_id" json:"group_id" env:"TIMEOUTD_KAFKA_GROUP_ID" env-default:"timeoutd"`
}

// Enabled returns true if brokers are configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// RedisConfig configures the redis reply sink, disabled when Addr is empty
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr" env:"TIMEOUTD_REDIS_ADDR"`
	Password string `yaml:"password" json:"password" env:"TIMEOUTD_REDIS_PASSWORD"`
	DB       int    `yaml:"db" json:"db" env:"TIMEOUTD_REDIS_DB"`
}

// Enabled returns true if an address is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// PostgresConfig configures the outbox reply sink, disabled when DSN is empty
type PostgresConfig struct {
	DSN string `yaml:"dsn" json:"dsn" env:"TIMEOUTD_POSTGRES_DSN"`
}

// Enabled returns true if a DSN is configured
func (p PostgresConfig) Enabled() bool {
	return p.DSN != ""
}

// ParseConfig parses config from the specified file (yaml or json by extension,
// durations as "300ms" strings or integer milliseconds)
// and applies environment overrides. A missing file falls back to the environment only.
func ParseConfig(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("error reading config from env: %w", err)
		}
	} else {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the service cannot run without
func (c *Config) Validate() error {
	if c.SweepInterval <= 0 {
		return fmt.Errorf("%w: sweep_interval must be positive, got %s", ErrInvalidConfig, c.SweepInterval)
	}
	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("%w: reply_timeout must be positive, got %s", ErrInvalidConfig, c.ReplyTimeout)
	}
	if c.StatsWindow <= 0 {
		return fmt.Errorf("%w: stats_window must be positive, got %d", ErrInvalidConfig, c.StatsWindow)
	}
	if c.APIServerAddr == "" {
		return fmt.Errorf("%w: server_addr is empty", ErrInvalidConfig)
	}
	return nil
}

// Dump renders the config as yaml
func Dump(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}
