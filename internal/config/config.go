package config

import (
	"fmt"
	"time"
)

// Config is the daemon configuration. Every field has a sensible default;
// the file only needs to name what differs.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	HTTP    HTTPConfig    `yaml:"http"`
	Sandbox bool          `yaml:"sandbox"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json"
}

type DaemonConfig struct {
	// PollInterval bounds the idle sleep when no dataset reports a due
	// time (for example when a dataset has no snapshots yet).
	PollInterval time.Duration `yaml:"pollInterval"`
	// ReportSchedule is an optional cron expression; when set, the daemon
	// logs a status summary on that schedule. Empty disables the report.
	ReportSchedule string `yaml:"reportSchedule"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // e.g. "127.0.0.1:9811"
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Daemon:  DaemonConfig{PollInterval: 10 * time.Minute},
		HTTP:    HTTPConfig{Enabled: false, Listen: "127.0.0.1:9811"},
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q: must be debug, info, warn or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q: must be text or json", c.Logging.Format)
	}
	if c.Daemon.PollInterval <= 0 {
		return fmt.Errorf("daemon.pollInterval %v: must be positive", c.Daemon.PollInterval)
	}
	if c.HTTP.Enabled && c.HTTP.Listen == "" {
		return fmt.Errorf("http.enabled set but http.listen is empty")
	}
	return nil
}
