// Package config manages application configuration from config.yaml,
// BOT_-prefixed environment variables, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration. Values can be set via
// environment variables prefixed with BOT_ (e.g., BOT_TELEGRAM_TOKEN)
// or through config.yaml.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Media     MediaConfig     `mapstructure:"media"`
	Download  DownloadConfig  `mapstructure:"download"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// TelegramConfig holds Telegram transport settings.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// MediaConfig holds attachment storage settings.
type MediaConfig struct {
	Dir         string `mapstructure:"dir"           validate:"required"`
	MaxFileSize int64  `mapstructure:"max_file_size" validate:"gt=0"`
}

// DownloadConfig holds the attachment download retry policy.
type DownloadConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	BaseDelay   time.Duration `mapstructure:"base_delay"   validate:"min=10ms,max=1m"`
	MaxDelay    time.Duration `mapstructure:"max_delay"    validate:"min=100ms,max=10m"`
	Timeout     time.Duration `mapstructure:"timeout"      validate:"min=1s,max=10m"`
}

// PoolConfig sizes the ingestion worker pool.
type PoolConfig struct {
	Workers   int `mapstructure:"workers"    validate:"min=1,max=64"`
	QueueSize int `mapstructure:"queue_size" validate:"min=1,max=4096"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// TaskConfig describes a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// Load loads and validates configuration from:
// 1. Default values
// 2. The config file at path (optional)
// 3. BOT_* environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only surfaces keys viper already knows about, and the
	// token is the one key with no default. Bind it so BOT_TELEGRAM_TOKEN
	// works without a config file; an empty env value falls through to
	// the file since AllowEmptyEnv stays off.
	if err := v.BindEnv("telegram.token"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults plus env carry the load.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "telegram_backup.db")

	v.SetDefault("media.dir", "telegram_media_backup")
	v.SetDefault("media.max_file_size", int64(50*1024*1024))

	v.SetDefault("download.max_attempts", 3)
	v.SetDefault("download.base_delay", 500*time.Millisecond)
	v.SetDefault("download.max_delay", 30*time.Second)
	v.SetDefault("download.timeout", 30*time.Second)

	v.SetDefault("pool.workers", 4)
	v.SetDefault("pool.queue_size", 64)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 0 4 * * *")
	v.SetDefault("scheduler.tasks.media_sweep.enabled", true)
	v.SetDefault("scheduler.tasks.media_sweep.schedule", "0 30 4 * * *")
}
