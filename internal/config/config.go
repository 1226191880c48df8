// Package config handles configuration loading, validation, and management
// for proctord.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the complete daemon configuration.
type Config struct {
	// Monitor configuration for session ingress.
	Monitor MonitorConfig `toml:"monitor" json:"monitor"`

	// Dataset configuration for import and playback.
	Dataset DatasetConfig `toml:"dataset" json:"dataset"`

	// Storage configuration for snapshot persistence.
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Notify configuration for high-risk alerts.
	Notify NotifyConfig `toml:"notify" json:"notify"`

	// Metrics configuration for the Prometheus endpoint.
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// MonitorConfig holds session monitoring configuration.
type MonitorConfig struct {
	// SnapshotIntervalSec is how often the engine snapshot is persisted.
	// Zero disables periodic snapshots.
	SnapshotIntervalSec int `toml:"snapshot_interval_sec" json:"snapshot_interval_sec"`

	// SimulateSensors enables the built-in activity simulator in place of
	// real browser-side sensors.
	SimulateSensors bool `toml:"simulate_sensors" json:"simulate_sensors"`

	// SimulateIntervalMs is the cadence of simulated sensor events.
	SimulateIntervalMs int `toml:"simulate_interval_ms" json:"simulate_interval_ms"`
}

// DatasetConfig holds dataset import and playback configuration.
type DatasetConfig struct {
	// Dir is a directory watched for dataset files. Empty disables the
	// watcher.
	Dir string `toml:"dir" json:"dir"`

	// PlaybackIntervalSec is the cadence at which imported records are
	// replayed into the engine.
	PlaybackIntervalSec int `toml:"playback_interval_sec" json:"playback_interval_sec"`

	// WatchDebounceMs is how long a dataset file must be stable before a
	// reload is triggered.
	WatchDebounceMs int `toml:"watch_debounce_ms" json:"watch_debounce_ms"`
}

// StorageConfig holds snapshot persistence configuration.
type StorageConfig struct {
	// Path is the SQLite database file for session snapshots.
	Path string `toml:"path" json:"path"`

	// BusyTimeoutMs is the SQLite busy timeout in milliseconds.
	BusyTimeoutMs int `toml:"busy_timeout_ms" json:"busy_timeout_ms"`
}

// NotifyConfig holds high-risk alert configuration.
type NotifyConfig struct {
	// Desktop enables desktop notifications over the D-Bus session bus.
	Desktop bool `toml:"desktop" json:"desktop"`
}

// MetricsConfig holds the Prometheus endpoint configuration.
type MetricsConfig struct {
	// Enabled turns the /metrics HTTP endpoint on.
	Enabled bool `toml:"enabled" json:"enabled"`

	// ListenAddr is the HTTP listen address for the endpoint.
	ListenAddr string `toml:"listen_addr" json:"listen_addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level"`

	// Format is the output format: text or json.
	Format string `toml:"format" json:"format"`

	// Output is where logs go: stdout, stderr, file, both.
	Output string `toml:"output" json:"output"`

	// FilePath is the log file path when Output includes file.
	FilePath string `toml:"file_path" json:"file_path"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{
			SnapshotIntervalSec: 10,
			SimulateSensors:     false,
			SimulateIntervalMs:  2000,
		},
		Dataset: DatasetConfig{
			PlaybackIntervalSec: 3,
			WatchDebounceMs:     500,
		},
		Storage: StorageConfig{
			Path:          filepath.Join(DefaultDataDir(), "proctord.db"),
			BusyTimeoutMs: 5000,
		},
		Notify: NotifyConfig{
			Desktop: true,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9478",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// DefaultDataDir returns the default data directory for proctord.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "proctord")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".proctord"
	}
	return filepath.Join(home, ".local", "share", "proctord")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "proctord", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".proctord", "config.toml")
	}
	return filepath.Join(home, ".config", "proctord", "config.toml")
}

// Load reads a TOML configuration file, applying defaults for anything the
// file leaves unset. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a TOML file, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Monitor.SnapshotIntervalSec < 0 {
		return fmt.Errorf("monitor.snapshot_interval_sec must not be negative")
	}
	if c.Monitor.SimulateIntervalMs <= 0 {
		return fmt.Errorf("monitor.simulate_interval_ms must be positive")
	}
	if c.Dataset.PlaybackIntervalSec <= 0 {
		return fmt.Errorf("dataset.playback_interval_sec must be positive")
	}
	if c.Dataset.WatchDebounceMs < 0 {
		return fmt.Errorf("dataset.watch_debounce_ms must not be negative")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must be set")
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr must be set when metrics are enabled")
	}
	switch c.Logging.Output {
	case "", "stdout", "stderr":
	case "file", "both":
		if c.Logging.FilePath == "" {
			return fmt.Errorf("logging.file_path must be set for output %q", c.Logging.Output)
		}
	default:
		return fmt.Errorf("unknown logging.output: %s", c.Logging.Output)
	}
	return nil
}
