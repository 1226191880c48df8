package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Dataset.PlaybackIntervalSec)
	assert.Equal(t, 10, cfg.Monitor.SnapshotIntervalSec)
	assert.False(t, cfg.Monitor.SimulateSensors)
	assert.True(t, cfg.Notify.Desktop)
	assert.Equal(t, "127.0.0.1:9478", cfg.Metrics.ListenAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[dataset]
dir = "/var/lib/proctord/datasets"
playback_interval_sec = 5

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/proctord/datasets", cfg.Dataset.Dir)
	assert.Equal(t, 5, cfg.Dataset.PlaybackIntervalSec)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset sections retain their defaults.
	assert.Equal(t, 10, cfg.Monitor.SnapshotIntervalSec)
	assert.True(t, cfg.Notify.Desktop)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.Monitor.SimulateSensors = true
	cfg.Metrics.Enabled = true
	cfg.Logging.Format = "json"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "negative snapshot interval",
			mutate:  func(c *Config) { c.Monitor.SnapshotIntervalSec = -1 },
			wantErr: "snapshot_interval_sec",
		},
		{
			name:    "zero playback interval",
			mutate:  func(c *Config) { c.Dataset.PlaybackIntervalSec = 0 },
			wantErr: "playback_interval_sec",
		},
		{
			name:    "empty storage path",
			mutate:  func(c *Config) { c.Storage.Path = "" },
			wantErr: "storage.path",
		},
		{
			name: "metrics enabled without address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.ListenAddr = ""
			},
			wantErr: "listen_addr",
		},
		{
			name:    "file output without path",
			mutate:  func(c *Config) { c.Logging.Output = "file" },
			wantErr: "file_path",
		},
		{
			name:    "unknown logging output",
			mutate:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: "logging.output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
