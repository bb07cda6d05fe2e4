package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	return writeConfigAs(t, "config.yaml", content)
}

func writeConfigAs(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %s", err)
	}
	return path
}

func TestParseConfigFile(t *testing.T) {
	path := writeConfig(t, `
server_addr: "127.0.0.1:9999"
sweep_interval: 100ms
log:
  level: debug
kafka:
  brokers: ["k1:9092", "k2:9092"]
redis:
  addr: "localhost:6379"
`)
	cfg, err := ParseConfig(path)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err)
	}
	if cfg.APIServerAddr != "127.0.0.1:9999" {
		t.Errorf("APIServerAddr: got %q", cfg.APIServerAddr)
	}
	if cfg.SweepInterval.Duration() != 100*time.Millisecond {
		t.Errorf("SweepInterval: got %s, want 100ms", cfg.SweepInterval)
	}
	if cfg.LogConfig.Level != "debug" || cfg.LogConfig.Format != "json" {
		t.Errorf("LogConfig: got %+v", cfg.LogConfig)
	}
	if !cfg.Kafka.Enabled() || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.InputTopic != "timeoutd.requests" {
		t.Errorf("Kafka: got %+v", cfg.Kafka)
	}
	if !cfg.Redis.Enabled() || cfg.Postgres.Enabled() {
		t.Errorf("sinks: redis %v postgres %v", cfg.Redis.Enabled(), cfg.Postgres.Enabled())
	}
	if cfg.ReplyTimeout.Duration() != 5*time.Second || cfg.StatsWindow != 1024 {
		t.Errorf("defaults: reply_timeout %s stats_window %d", cfg.ReplyTimeout, cfg.StatsWindow)
	}
}

func TestParseConfigJSON(t *testing.T) {
	path := writeConfigAs(t, "config.json", `{
	"server_addr": "127.0.0.1:9999",
	"sweep_interval": "300ms",
	"reply_timeout": 2000,
	"log": {"level": "debug"}
}`)
	cfg, err := ParseConfig(path)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err)
	}
	if cfg.SweepInterval.Duration() != 300*time.Millisecond {
		t.Errorf("SweepInterval: got %s, want 300ms", cfg.SweepInterval)
	}
	if cfg.ReplyTimeout.Duration() != 2*time.Second {
		t.Errorf("ReplyTimeout: got %s, want 2s", cfg.ReplyTimeout)
	}
	if cfg.APIServerAddr != "127.0.0.1:9999" || cfg.LogConfig.Level != "debug" {
		t.Errorf("config: got %+v", cfg)
	}
}

func TestParseConfigJSONBadDuration(t *testing.T) {
	path := writeConfigAs(t, "config.json", `{"sweep_interval": "soon"}`)
	if _, err := ParseConfig(path); err == nil {
		t.Error("ParseConfig: want an error for an unparsable duration")
	}
}

func TestParseConfigEnvOnly(t *testing.T) {
	t.Setenv("TIMEOUTD_SWEEP_INTERVAL", "1s")
	t.Setenv("TIMEOUTD_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := ParseConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("ParseConfig: %s", err)
	}
	if cfg.SweepInterval.Duration() != time.Second {
		t.Errorf("SweepInterval: got %s, want 1s", cfg.SweepInterval)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Brokers: got %v", cfg.Kafka.Brokers)
	}
	if cfg.APIServerAddr != "0.0.0.0:7074" {
		t.Errorf("APIServerAddr: got %q", cfg.APIServerAddr)
	}
}

func TestParseConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("TIMEOUTD_LOG_LEVEL", "warn")
	path := writeConfig(t, "log:\n  level: debug\n")

	cfg, err := ParseConfig(path)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err)
	}
	if cfg.LogConfig.Level != "warn" {
		t.Errorf("Level: got %q, want warn", cfg.LogConfig.Level)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	path := writeConfig(t, "sweep_interval: -1s\n")
	if _, err := ParseConfig(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ParseConfig: got %v, want ErrInvalidConfig", err)
	}
}

func TestDump(t *testing.T) {
	cfg := &Config{
		APIServerAddr: "0.0.0.0:7074",
		SweepInterval: Duration(300 * time.Millisecond),
		ReplyTimeout:  Duration(5 * time.Second),
		StatsWindow:   10,
	}
	b, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump: %s", err)
	}
	if !strings.Contains(string(b), "sweep_interval: 300ms") {
		t.Errorf("Dump: duration not rendered as string:\n%s", b)
	}
	var back Config
	if err := yaml.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %s", err)
	}
	if back.SweepInterval != cfg.SweepInterval {
		t.Errorf("SweepInterval: got %s, want %s", back.SweepInterval, cfg.SweepInterval)
	}
}

func TestWatchReloads(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 4)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- Watch(ctx, path, func(c *Config) { changed <- c }, func(error) {})
	}()

	// the watcher may not be registered yet, so keep writing until a reload shows up
	deadline := time.After(5 * time.Second)
	for {
		if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
			t.Fatalf("write config: %s", err)
		}
		select {
		case c := <-changed:
			if c.LogConfig.Level != "debug" {
				t.Errorf("Level: got %q, want debug", c.LogConfig.Level)
			}
			cancel()
			if err := <-watchErr; err != nil {
				t.Errorf("Watch: %s", err)
			}
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no reload within five seconds")
		}
	}
}
