// Package config loads casebundle settings from defaults, a .casebundle.yaml
// file, CASEBUNDLE_* environment variables and command-line flags, in
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Keys understood in the config file and environment.
const (
	KeyDB                   = "db"
	KeyUndoWindow           = "undo_window"
	KeyTOCPages             = "toc_pages"
	KeyFormat               = "format"
	KeyPageWarningThreshold = "page_warning_threshold"
)

// EnvPrefix prefixes every environment override, e.g. CASEBUNDLE_DB.
const EnvPrefix = "CASEBUNDLE"

// Config is the resolved configuration.
type Config struct {
	// DB is the SQLite database path with ~ expanded.
	DB string

	// UndoWindow is how long a committed reorder can be undone.
	UndoWindow time.Duration

	// TOCPages is the number of pages reserved for the table of contents;
	// 0 estimates it from the number of rows.
	TOCPages int

	// Format is text or json.
	Format string

	// PageWarningThreshold flags outline rows longer than this many pages.
	PageWarningThreshold int
}

// New returns a viper instance with defaults, env binding and config search
// paths set. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDB, "~/.casebundle.db")
	v.SetDefault(KeyUndoWindow, "5s")
	v.SetDefault(KeyTOCPages, 0)
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyPageWarningThreshold, 100)

	v.SetConfigName(".casebundle") // .yaml is implicit
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if override := os.Getenv(EnvPrefix + "_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}
	return v
}

// Load reads the config file, if any, and resolves v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	db, err := homedir.Expand(v.GetString(KeyDB))
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", KeyDB, err)
	}

	window, err := time.ParseDuration(v.GetString(KeyUndoWindow))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyUndoWindow, err)
	}

	cfg := &Config{
		DB:                   db,
		UndoWindow:           window,
		TOCPages:             v.GetInt(KeyTOCPages),
		Format:               v.GetString(KeyFormat),
		PageWarningThreshold: v.GetInt(KeyPageWarningThreshold),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.DB == "":
		return fmt.Errorf("%s must not be empty", KeyDB)
	case c.UndoWindow <= 0:
		return fmt.Errorf("%s must be positive, got %s", KeyUndoWindow, c.UndoWindow)
	case c.TOCPages < 0:
		return fmt.Errorf("%s must not be negative, got %d", KeyTOCPages, c.TOCPages)
	case c.Format != "text" && c.Format != "json":
		return fmt.Errorf("%s must be text or json, got %q", KeyFormat, c.Format)
	case c.PageWarningThreshold < 1:
		return fmt.Errorf("%s must be at least 1, got %d", KeyPageWarningThreshold, c.PageWarningThreshold)
	}
	return nil
}
