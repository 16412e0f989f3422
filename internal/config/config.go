// Package config loads refguard settings.
//
// Precedence (highest to lowest): flags > REFGUARD_ env vars > config file >
// defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/roach88/refguard/internal/engine"
	"github.com/roach88/refguard/internal/runner"
)

// EnvPrefix prefixes environment overrides, e.g. REFGUARD_MAX_DEPTH.
const EnvPrefix = "REFGUARD_"

// Config file names searched in the working directory when no explicit
// path is given.
var defaultFiles = []string{"refguard.yaml", "refguard.yml"}

// Config holds refguard settings.
type Config struct {
	MaxDepth    int    `koanf:"max_depth"`
	Concurrency int    `koanf:"concurrency"`
	Order       string `koanf:"order"`
	Database    string `koanf:"db"`
	MetricsFile string `koanf:"metrics_file"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"max_depth":    engine.DefaultMaxDepth,
		"concurrency":  runner.DefaultConcurrency,
		"order":        string(runner.OrderTopo),
		"db":           "",
		"metrics_file": "",
	}
}

// findConfigFile returns explicit, or the first default file present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range defaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration from defaults, the config file, the environment
// and the explicitly set flags in that order. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// REFGUARD_MAX_DEPTH -> max_depth
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine or runner cannot use.
func (c *Config) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("invalid config: max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid config: concurrency must be positive, got %d", c.Concurrency)
	}
	if _, err := runner.ParseOrder(c.Order); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RunOrder returns the validated wave order.
func (c *Config) RunOrder() runner.Order {
	return runner.Order(c.Order)
}
