package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Library       LibraryConfig       `mapstructure:"library"`
	Downloads     DownloadsConfig     `mapstructure:"downloads"`
	Backup        BackupConfig        `mapstructure:"backup"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// LibraryConfig holds media library root configuration.
type LibraryConfig struct {
	MovieRoot  string `mapstructure:"movie_root"`
	SeriesRoot string `mapstructure:"series_root"`
}

// DownloadsConfig holds download handling configuration.
type DownloadsConfig struct {
	// StagingDir is where download clients place completed jobs.
	StagingDir string `mapstructure:"staging_dir"`
	// ConcurrentRequests bounds parallel external calls during batch operations.
	ConcurrentRequests int `mapstructure:"concurrent_requests"`
	// KeepSource leaves the source file in place after import (non-torrent clients).
	KeepSource bool `mapstructure:"keep_source"`
}

// BackupConfig holds scheduled database backup configuration.
type BackupConfig struct {
	Dir      string `mapstructure:"dir"`
	Keep     int    `mapstructure:"keep"`
	Interval string `mapstructure:"interval"` // "daily" or "weekly"
}

// NotificationsConfig holds outbound notification configuration.
type NotificationsConfig struct {
	// WebhookURL, when set, receives a JSON POST for every media event.
	WebhookURL string `mapstructure:"webhook_url"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8686},
		Database: DatabaseConfig{Path: "./data/mediastack.db"},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Library:  LibraryConfig{MovieRoot: "./media/movies", SeriesRoot: "./media/tv"},
		Downloads: DownloadsConfig{
			StagingDir:         "./downloads",
			ConcurrentRequests: 5,
		},
		Backup: BackupConfig{Dir: "./data/backups", Keep: 10, Interval: "daily"},
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
		v.AddConfigPath("$HOME/.mediastack")
	}

	v.SetEnvPrefix("MEDIASTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Downloads.ConcurrentRequests < 1 {
		cfg.Downloads.ConcurrentRequests = 5
	}
	if cfg.Backup.Keep < 1 {
		cfg.Backup.Keep = 10
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8686)

	v.SetDefault("database.path", "./data/mediastack.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("library.movie_root", "./media/movies")
	v.SetDefault("library.series_root", "./media/tv")

	v.SetDefault("downloads.staging_dir", "./downloads")
	v.SetDefault("downloads.concurrent_requests", 5)
	v.SetDefault("downloads.keep_source", false)

	v.SetDefault("backup.dir", "./data/backups")
	v.SetDefault("backup.keep", 10)
	v.SetDefault("backup.interval", "daily")

	v.SetDefault("notifications.webhook_url", "")
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
