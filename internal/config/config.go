// Package config loads the editor's plugin host configuration from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config controls the plugin host.
type Config struct {
	// PluginPaths are the directories searched for plugins, in order.
	PluginPaths []string `koanf:"plugin_paths"`

	// Disabled lists plugin names that must never be loaded.
	Disabled []string `koanf:"disabled"`

	// WatchReload enables automatic reload when plugin sources change.
	WatchReload bool `koanf:"watch_reload"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		WatchReload: true,
		LogLevel:    "info",
	}
}

// DefaultPath returns the standard location of the config file.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "fathom", "config.yaml")
}

// Load reads the YAML file at path, layered over the defaults. A missing
// file is not an error: the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return cfg, fmt.Errorf("config: loading %s: %w", path, err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
