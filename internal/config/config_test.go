package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "/zurg", cfg.Mount.Root)
	assert.Equal(t, "/zurg", cfg.Mount.ConsumerRoot)
	assert.Equal(t, "/media/films", cfg.Library.FilmsDir)
	assert.Equal(t, "/media/shows", cfg.Library.ShowsDir)
	assert.Equal(t, "http://pocketbase:8090", cfg.Store.URL)
	assert.Equal(t, 100, cfg.Debrid.MinFileSizeMB)
	assert.True(t, cfg.Repair.Enabled)
	assert.Equal(t, 3, cfg.Repair.MaxAttempts)
	assert.Equal(t, 300, cfg.Scan.IntervalSeconds)
	assert.True(t, cfg.Scan.CleanupArchived)
	assert.Equal(t, 8080, cfg.Webhook.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
mount:
  root: /mnt/debrid
  consumer_root: /zurg
scan:
  interval_seconds: 120
repair:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/mnt/debrid", cfg.Mount.Root)
	assert.Equal(t, "/zurg", cfg.Mount.ConsumerRoot)
	assert.Equal(t, 120, cfg.Scan.IntervalSeconds)
	assert.False(t, cfg.Repair.Enabled)
	// Untouched keys keep their defaults.
	assert.Equal(t, "/media/films", cfg.Library.FilmsDir)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "scan:\n  interval_seconds: 120\n")
	t.Setenv("DRIFTWOOD_SCAN_INTERVAL_SECONDS", "45")
	t.Setenv("DRIFTWOOD_METADATA_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 45, cfg.Scan.IntervalSeconds)
	assert.Equal(t, "env-key", cfg.Metadata.APIKey)
}

func TestLegacyEnvNames(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "legacy-tmdb")
	t.Setenv("REAL_DEBRID_API_KEY", "legacy-rd")
	t.Setenv("JELLYFIN_URL", "http://jf:8096")
	t.Setenv("MAX_REPAIR_ATTEMPTS", "5")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "legacy-tmdb", cfg.Metadata.APIKey)
	assert.Equal(t, "legacy-rd", cfg.Debrid.APIKey)
	assert.Equal(t, "http://jf:8096", cfg.MediaServer.URL)
	assert.Equal(t, 5, cfg.Repair.MaxAttempts)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty mount root", "mount:\n  root: \"\"\n"},
		{"zero interval", "scan:\n  interval_seconds: 0\n"},
		{"bad port", "webhook:\n  port: 99999\n"},
		{"negative attempts", "repair:\n  max_attempts: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}
