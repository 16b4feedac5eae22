// Package config loads client settings from config.yaml, an optional .env
// file and TUNING_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tuningstudio/tuning/internal/logger"
	"github.com/tuningstudio/tuning/internal/storage"
)

// Config is the full client configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	Cart    SlotConfig    `mapstructure:"cart"`
	Session SlotConfig    `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
	Query   QueryConfig   `mapstructure:"query"`
	Site    SiteConfig    `mapstructure:"site"`
}

// APIConfig points at the studio REST API.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // per cart server operation
}

// StorageConfig selects the local slot store.
type StorageConfig struct {
	Driver string      `mapstructure:"driver"` // sqlite / redis / memory
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig is used when storage.driver is redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// ToStorageOptions converts to storage.Options.
func (c StorageConfig) ToStorageOptions() storage.Options {
	return storage.Options{
		Driver: c.Driver,
		DSN:    c.DSN,
		Redis: storage.RedisOptions{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		},
	}
}

// SlotConfig names a storage slot.
type SlotConfig struct {
	Slot string `mapstructure:"slot"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Mode       string `mapstructure:"mode"` // debug / release
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ToLoggerOptions converts to logger.Options.
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// QueryConfig tunes the page query cache.
type QueryConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SiteConfig is the public website, used for "open in browser".
type SiteConfig struct {
	URL string `mapstructure:"url"`
}

// Load reads configuration. With no paths it searches ".", "./etc" and
// ~/.tuning for config.yaml; a missing file is not an error.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnw("config_dotenv_failed", "error", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = defaultSearchPaths()
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("TUNING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.Load: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: unmarshal: %w", err)
	}
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	cfg.Storage.DSN = expandHome(cfg.Storage.DSN)
	cfg.Log.Dir = expandHome(cfg.Log.Dir)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.request_timeout", "10s")
	v.SetDefault("storage.driver", storage.DriverSQLite)
	v.SetDefault("storage.dsn", "~/.tuning/state.db")
	v.SetDefault("storage.redis.addr", "127.0.0.1:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "tuning")
	v.SetDefault("cart.slot", "cart")
	v.SetDefault("session.slot", "session")
	v.SetDefault("log.mode", "release")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "tuning.log")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("query.ttl", "30s")
	v.SetDefault("site.url", "http://localhost:5173")
}

func defaultSearchPaths() []string {
	paths := []string{".", "./etc"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".tuning"))
	}
	return paths
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
