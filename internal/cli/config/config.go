// Package config loads quill.yml, the per-project compiler configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/quill-lang/quill/compiler/cstore"
)

// Config represents the Quill build configuration
type Config struct {
	Target  string        `mapstructure:"target"`
	Panic   string        `mapstructure:"panic"`   // "unwind" or "abort"
	Linkage string        `mapstructure:"linkage"` // "dynamic" or "static"
	Search  []SearchEntry `mapstructure:"search_paths"`
	// Inject lists crates added to every dependency list implicitly,
	// e.g. the runtime crate.
	Inject []string `mapstructure:"inject"`
}

// SearchEntry is one configured library search path
type SearchEntry struct {
	Dir  string `mapstructure:"dir"`
	Kind string `mapstructure:"kind"` // "native", "crate", "dependency", "framework", "all"
}

// Load loads the configuration from quill.yml or quill.yaml
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("target", "x86_64-unknown-linux")
	v.SetDefault("panic", "unwind")
	v.SetDefault("linkage", "dynamic")

	v.SetConfigName("quill")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("quill")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// PanicStrategy returns the configured panic strategy.
func (c *Config) PanicStrategy() cstore.PanicStrategy {
	if c.Panic == "abort" {
		return cstore.PanicAbort
	}
	return cstore.PanicUnwind
}

// LinkagePreference returns the configured linkage preference.
func (c *Config) LinkagePreference() cstore.LinkagePreference {
	if c.Linkage == "static" {
		return cstore.RequireStatic
	}
	return cstore.RequireDynamic
}

// ParsePathKind converts a configured kind string to a cstore.PathKind.
// An empty string means "all".
func ParsePathKind(s string) (cstore.PathKind, error) {
	switch s {
	case "native":
		return cstore.PathKindNative, nil
	case "crate":
		return cstore.PathKindCrate, nil
	case "dependency":
		return cstore.PathKindDependency, nil
	case "framework":
		return cstore.PathKindFramework, nil
	case "all", "":
		return cstore.PathKindAll, nil
	default:
		return 0, fmt.Errorf("unknown search path kind: %s", s)
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Panic {
	case "unwind", "abort":
	default:
		return fmt.Errorf("panic must be \"unwind\" or \"abort\", got: %s", cfg.Panic)
	}
	switch cfg.Linkage {
	case "dynamic", "static":
	default:
		return fmt.Errorf("linkage must be \"dynamic\" or \"static\", got: %s", cfg.Linkage)
	}
	for _, sp := range cfg.Search {
		if strings.TrimSpace(sp.Dir) == "" {
			return fmt.Errorf("search path entry has an empty dir")
		}
		if _, err := ParsePathKind(sp.Kind); err != nil {
			return err
		}
	}
	return nil
}
