package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/keel"
	"github.com/xraph/keel/settings"
)

var (
	cfgFile string
	v       = settings.NewViper()
)

var rootCmd = &cobra.Command{
	Use:           "keel",
	Short:         "keel is the command-line interface for the keel job runtime.",
	Long:          `Inspect the resolved settings and the Redis server of a keel worker, and run a heartbeat-only worker process.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.String("redis-url", "", "Redis URL")
	flags.IntP("concurrency", "C", 0, "jobs processed at once")
	flags.StringSliceP("queues", "q", nil, "queues to fetch from, in priority order")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text or json)")

	for key, flag := range map[string]string{
		settings.KeyRedisURL:    "redis-url",
		settings.KeyConcurrency: "concurrency",
		settings.KeyQueues:      "queues",
		settings.KeyLogLevel:    "log-level",
		settings.KeyLogFormat:   "log-format",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			slog.Error("error binding flag", "flag", flag, "error", err)
			os.Exit(1)
		}
	}
}

// loadSettings reads the config file, if any, and resolves all settings.
func loadSettings() (*settings.Settings, error) {
	if err := settings.ReadFile(v, cfgFile); err != nil {
		return nil, err
	}
	return settings.Load(v)
}

// newRuntime builds a Config from the resolved settings.
func newRuntime() (*keel.Config, *settings.Settings, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	logger := s.Logger(os.Stderr)
	slog.SetDefault(logger)

	cfg, err := keel.New(s.Options(logger)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize runtime: %w", err)
	}
	return cfg, s, nil
}
