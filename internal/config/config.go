// Package config loads and hot-reloads the engine's runtime configuration:
// which storage backend to use, its connection parameters, hardware
// acceleration toggles, and audit/metrics settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// BackendConfig configures an S3-compatible object storage backend.
type BackendConfig struct {
	Provider  string `mapstructure:"provider"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// RedisConfig configures a Redis-backed storage collaborator.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// DiskConfig configures the local filesystem storage collaborator.
type DiskConfig struct {
	RootDir string `mapstructure:"root_dir"`
}

// HardwareConfig holds CPU-specific acceleration toggles. They are loaded
// with the rest of the configuration, but no code path reads them.
type HardwareConfig struct {
	EnableAESNI    bool `mapstructure:"enable_aes_ni"`
	EnableARMv8AES bool `mapstructure:"enable_armv8_aes"`
}

// SinkConfig configures where audit events are written.
type SinkConfig struct {
	Type          string            `mapstructure:"type"` // "stdout" (default, also ""), "http" or "file"
	Endpoint      string            `mapstructure:"endpoint"`
	Headers       map[string]string `mapstructure:"headers"`
	FilePath      string            `mapstructure:"file_path"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval time.Duration     `mapstructure:"flush_interval"`
	RetryCount    int               `mapstructure:"retry_count"`
	RetryBackoff  time.Duration     `mapstructure:"retry_backoff"`
}

// AuditConfig configures audit logging of encrypt/decrypt/close operations.
type AuditConfig struct {
	Enabled             bool       `mapstructure:"enabled"`
	MaxEvents           int        `mapstructure:"max_events"`
	RedactMetadataKeys  []string   `mapstructure:"redact_metadata_keys"`
	Sink                SinkConfig `mapstructure:"sink"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the engine's top-level configuration.
type Config struct {
	StorageBackend string         `mapstructure:"storage_backend"` // "memory", "disk", "s3", "redis"
	S3             BackendConfig  `mapstructure:"s3"`
	Redis          RedisConfig    `mapstructure:"redis"`
	Disk           DiskConfig     `mapstructure:"disk"`
	Hardware       HardwareConfig `mapstructure:"hardware"`
	Audit          AuditConfig    `mapstructure:"audit"`
	Metrics        MetricsConfig  `mapstructure:"metrics"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("storage_backend", "memory")
	v.SetDefault("s3.provider", "aws")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "selfenc:")
	v.SetDefault("disk.root_dir", "./selfenc-data")
	v.SetDefault("hardware.enable_aes_ni", true)
	v.SetDefault("hardware.enable_armv8_aes", true)
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.max_events", 1000)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}

// Load reads configuration from built-in defaults, the file at path (if
// non-empty), and environment variables prefixed SELFENC_, in increasing
// priority.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("selfenc")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// WatchAndReload re-loads the configuration from disk whenever the backing
// file changes, invoking onChange with the newly parsed Config. Intended for
// long-lived daemons (e.g. the debug/health HTTP server); CLI invocations
// that run once don't need it.
func WatchAndReload(path string, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("config: watch requires a non-empty path")
	}

	v := viper.New()
	defaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			logrus.WithError(err).WithField("file", e.Name).Error("config: reload failed, keeping previous configuration")
			return
		}
		logrus.WithField("file", e.Name).Info("config: reloaded")
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}
