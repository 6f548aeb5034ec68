// Package config loads the store's optional tuning knobs from a YAML file,
// following the teacher's internal/labelmutex.ParseMutexGroups pattern of a
// scoped viper.New() instance reading one file rather than a process-wide
// singleton. Config is always optional: an absent file or key falls back to
// the defaults below, and Connect never requires one.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the recognized tuning keys. Load starts from Defaults() and
// overwrites only the keys present in the file.
type Config struct {
	Pool struct {
		MaxOpen         int           `mapstructure:"max_open"`
		MaxIdle         int           `mapstructure:"max_idle"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	} `mapstructure:"pool"`
	SQLite struct {
		BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	} `mapstructure:"sqlite"`
	Retry struct {
		MaxElapsed time.Duration `mapstructure:"max_elapsed"`
	} `mapstructure:"retry"`
}

// Defaults mirrors the hardcoded fallbacks used when no config file, or no
// particular key, is present.
func Defaults() Config {
	var c Config
	c.Pool.MaxOpen = 10
	c.Pool.MaxIdle = 5
	c.Pool.ConnMaxLifetime = 5 * time.Minute
	c.SQLite.BusyTimeout = 30 * time.Second
	c.Retry.MaxElapsed = 30 * time.Second
	return c
}

// Load reads path (a YAML file, e.g. "mlmd.yaml") and overlays it onto
// Defaults(). A missing file is not an error; it returns the defaults
// unchanged, config being optional per spec.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
