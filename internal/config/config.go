package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Mount       MountConfig       `mapstructure:"mount"`
	Library     LibraryConfig     `mapstructure:"library"`
	Store       StoreConfig       `mapstructure:"store"`
	Metadata    MetadataConfig    `mapstructure:"metadata"`
	Debrid      DebridConfig      `mapstructure:"debrid"`
	Repair      RepairConfig      `mapstructure:"repair"`
	MediaServer MediaServerConfig `mapstructure:"mediaserver"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Scan        ScanConfig        `mapstructure:"scan"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MountConfig describes the remote mount as seen by this process and
// by the media server consuming the symlinks.
type MountConfig struct {
	Root         string `mapstructure:"root"`
	ConsumerRoot string `mapstructure:"consumer_root"`
}

// LibraryConfig holds the symlink library roots.
type LibraryConfig struct {
	FilmsDir string `mapstructure:"films_dir"`
	ShowsDir string `mapstructure:"shows_dir"`
}

// StoreConfig holds record store connection settings.
type StoreConfig struct {
	URL string `mapstructure:"url"`
}

// MetadataConfig holds metadata provider settings.
type MetadataConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// DebridConfig holds debrid service settings.
type DebridConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	MinFileSizeMB int    `mapstructure:"min_file_size_mb"`
}

// RepairConfig controls automatic re-adding of dead torrents.
type RepairConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxAttempts int  `mapstructure:"max_attempts"`
}

// MediaServerConfig holds media server refresh settings.
type MediaServerConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// WebhookConfig holds the trigger webhook listener settings.
type WebhookConfig struct {
	Port int `mapstructure:"port"`
}

// ScanConfig holds reconciliation loop settings.
type ScanConfig struct {
	IntervalSeconds int  `mapstructure:"interval_seconds"`
	CleanupArchived bool `mapstructure:"cleanup_archived"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Mount: MountConfig{
			Root:         "/zurg",
			ConsumerRoot: "/zurg",
		},
		Library: LibraryConfig{
			FilmsDir: "/media/films",
			ShowsDir: "/media/shows",
		},
		Store: StoreConfig{
			URL: "http://pocketbase:8090",
		},
		Metadata: MetadataConfig{
			BaseURL: "https://api.themoviedb.org/3",
		},
		Debrid: DebridConfig{
			BaseURL:       "https://api.real-debrid.com/rest/1.0",
			MinFileSizeMB: 100,
		},
		Repair: RepairConfig{
			Enabled:     true,
			MaxAttempts: 3,
		},
		MediaServer: MediaServerConfig{
			URL: "http://jellyfin:8096",
		},
		Webhook: WebhookConfig{
			Port: 8080,
		},
		Scan: ScanConfig{
			IntervalSeconds: 300,
			CleanupArchived: true,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.driftwood")
	}

	v.SetEnvPrefix("DRIFTWOOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindLegacyEnv(v)

	// Config file is optional; env vars + defaults are enough.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.path", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", false)

	v.SetDefault("mount.root", "/zurg")
	v.SetDefault("mount.consumer_root", "/zurg")

	v.SetDefault("library.films_dir", "/media/films")
	v.SetDefault("library.shows_dir", "/media/shows")

	v.SetDefault("store.url", "http://pocketbase:8090")

	v.SetDefault("metadata.api_key", "")
	v.SetDefault("metadata.base_url", "https://api.themoviedb.org/3")

	v.SetDefault("debrid.api_key", "")
	v.SetDefault("debrid.base_url", "https://api.real-debrid.com/rest/1.0")
	v.SetDefault("debrid.min_file_size_mb", 100)

	v.SetDefault("repair.enabled", true)
	v.SetDefault("repair.max_attempts", 3)

	v.SetDefault("mediaserver.url", "http://jellyfin:8096")
	v.SetDefault("mediaserver.api_key", "")

	v.SetDefault("webhook.port", 8080)

	v.SetDefault("scan.interval_seconds", 300)
	v.SetDefault("scan.cleanup_archived", true)
}

// bindLegacyEnv maps the flat environment names used by earlier
// deployments onto their viper keys. The prefixed form wins when both
// are set.
func bindLegacyEnv(v *viper.Viper) {
	v.BindEnv("metadata.api_key", "DRIFTWOOD_METADATA_API_KEY", "TMDB_API_KEY")
	v.BindEnv("debrid.api_key", "DRIFTWOOD_DEBRID_API_KEY", "REAL_DEBRID_API_KEY")
	v.BindEnv("debrid.min_file_size_mb", "DRIFTWOOD_DEBRID_MIN_FILE_SIZE_MB", "MIN_VIDEO_FILE_SIZE_MB")
	v.BindEnv("store.url", "DRIFTWOOD_STORE_URL", "POCKETBASE_URL")
	v.BindEnv("mediaserver.url", "DRIFTWOOD_MEDIASERVER_URL", "JELLYFIN_URL")
	v.BindEnv("mediaserver.api_key", "DRIFTWOOD_MEDIASERVER_API_KEY", "JELLYFIN_API_KEY")
	v.BindEnv("mount.consumer_root", "DRIFTWOOD_MOUNT_CONSUMER_ROOT", "JELLYFIN_ZURG_PATH")
	v.BindEnv("scan.interval_seconds", "DRIFTWOOD_SCAN_INTERVAL_SECONDS", "SCAN_INTERVAL_SECS")
	v.BindEnv("scan.cleanup_archived", "DRIFTWOOD_SCAN_CLEANUP_ARCHIVED", "CLEANUP_ARCHIVED")
	v.BindEnv("repair.enabled", "DRIFTWOOD_REPAIR_ENABLED", "REPAIR_ENABLED")
	v.BindEnv("repair.max_attempts", "DRIFTWOOD_REPAIR_MAX_ATTEMPTS", "MAX_REPAIR_ATTEMPTS")
	v.BindEnv("webhook.port", "DRIFTWOOD_WEBHOOK_PORT", "WEBHOOK_PORT")
}

// Validate checks the structural settings. API keys are allowed to be
// empty: the daemon degrades (no identification, no repair) rather
// than refusing to start.
func (c *Config) Validate() error {
	if c.Mount.Root == "" {
		return fmt.Errorf("mount.root must not be empty")
	}
	if c.Library.FilmsDir == "" || c.Library.ShowsDir == "" {
		return fmt.Errorf("library.films_dir and library.shows_dir must not be empty")
	}
	if c.Store.URL == "" {
		return fmt.Errorf("store.url must not be empty")
	}
	if c.Scan.IntervalSeconds <= 0 {
		return fmt.Errorf("scan.interval_seconds must be positive, got %d", c.Scan.IntervalSeconds)
	}
	if c.Webhook.Port <= 0 || c.Webhook.Port > 65535 {
		return fmt.Errorf("webhook.port out of range: %d", c.Webhook.Port)
	}
	if c.Repair.MaxAttempts < 0 {
		return fmt.Errorf("repair.max_attempts must not be negative, got %d", c.Repair.MaxAttempts)
	}
	return nil
}
