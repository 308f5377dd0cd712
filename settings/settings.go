// Package settings loads process settings for a keel worker from the
// environment and an optional config file, and turns them into keel
// options.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xraph/keel"
	"github.com/xraph/keel/redisconn"
	"github.com/xraph/keel/worker"
)

// EnvPrefix is prepended to every environment variable, e.g. KEEL_REDIS_URL.
const EnvPrefix = "KEEL"

// Setting keys.
const (
	KeyRedisURL          = "redis_url"
	KeyConcurrency       = "concurrency"
	KeyQueues            = "queues"
	KeyPoolSize          = "pool_size"
	KeyPoolTimeout       = "pool_timeout"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyHeartbeatInterval = "heartbeat_interval"
)

// ErrInvalidSetting is wrapped by every validation failure from Load.
var ErrInvalidSetting = errors.New("keel/settings: invalid setting")

// Settings are the process-level knobs of a worker.
type Settings struct {
	RedisURL          string        `mapstructure:"redis_url"`
	Concurrency       int           `mapstructure:"concurrency"`
	Queues            []string      `mapstructure:"queues"`
	PoolSize          int           `mapstructure:"pool_size"`
	PoolTimeout       time.Duration `mapstructure:"pool_timeout"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// NewViper returns a viper instance with keel's defaults that reads
// KEEL_-prefixed environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyRedisURL, redisconn.DefaultURL)
	v.SetDefault(KeyConcurrency, keel.DefaultConcurrency)
	v.SetDefault(KeyQueues, []string{keel.DefaultQueue})
	v.SetDefault(KeyPoolSize, 0)
	v.SetDefault(KeyPoolTimeout, redisconn.DefaultPoolTimeout)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyHeartbeatInterval, worker.DefaultHeartbeatInterval)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges the config file at path into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("keel/settings: read %s: %w", path, err)
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("keel/settings: decode: %w", err)
	}
	s.Queues = splitQueues(s.Queues)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// splitQueues accepts both list values and comma-separated strings.
func splitQueues(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, q := range strings.Split(item, ",") {
			if q = strings.TrimSpace(q); q != "" {
				out = append(out, q)
			}
		}
	}
	return out
}

// Validate reports the first invalid field.
func (s *Settings) Validate() error {
	if s.Concurrency <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidSetting, KeyConcurrency, s.Concurrency)
	}
	if len(s.Queues) == 0 {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidSetting, KeyQueues)
	}
	if s.PoolSize < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidSetting, KeyPoolSize, s.PoolSize)
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(s.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %s must be text or json, got %q", ErrInvalidSetting, KeyLogFormat, s.LogFormat)
	}
	return nil
}

// RedisOptions returns the pool options described by s.
func (s *Settings) RedisOptions(logger *slog.Logger) redisconn.Options {
	return redisconn.Options{
		URL:         s.RedisURL,
		Size:        s.PoolSize,
		PoolTimeout: s.PoolTimeout,
		Name:        "keel",
		Logger:      logger,
	}
}

// Options converts s into keel options.
func (s *Settings) Options(logger *slog.Logger) []keel.Option {
	return []keel.Option{
		keel.WithLogger(logger),
		keel.WithConcurrency(s.Concurrency),
		keel.WithQueues(s.Queues),
		keel.WithRedisOptions(s.RedisOptions(logger)),
	}
}
