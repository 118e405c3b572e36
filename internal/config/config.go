// Package config loads scriptify's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"scriptify/internal/logging"
	"scriptify/internal/srctree"
)

const fileName = "config.yaml"

type Config struct {
	Theme      string       `yaml:"theme"`
	LogLevel   string       `yaml:"log_level"`
	OutputMode string       `yaml:"output_mode"`
	Layout     LayoutConfig `yaml:"layout"`
	Watch      WatchConfig  `yaml:"watch"`
}

// LayoutConfig overrides fields of srctree.DefaultLayout. Empty fields keep
// the default.
type LayoutConfig struct {
	SourceDir  string `yaml:"source_dir"`
	EntryFile  string `yaml:"entry_file"`
	ModuleFile string `yaml:"module_file"`
	Keyword    string `yaml:"keyword"`
	Manifest   string `yaml:"manifest"`
	Order      string `yaml:"order"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

func DefaultConfig() Config {
	return Config{
		Theme:      "mocha",
		LogLevel:   "info",
		OutputMode: "0755",
		Watch:      WatchConfig{Debounce: 200 * time.Millisecond},
	}
}

// Load reads the config from the default location.
func Load() (Config, error) {
	return LoadFrom(getConfigPath())
}

// LoadFromDir reads config.yaml from dir.
func LoadFromDir(dir string) (Config, error) {
	return LoadFrom(filepath.Join(dir, fileName))
}

// LoadFrom reads the config at configPath. A missing file yields the
// defaults; an unreadable or malformed file is an error.
func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", configPath, err)
	}

	defaults := DefaultConfig()
	if cfg.Theme == "" {
		cfg.Theme = defaults.Theme
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.OutputMode == "" {
		cfg.OutputMode = defaults.OutputMode
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = defaults.Watch.Debounce
	}

	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	if _, err := c.FileMode(); err != nil {
		return err
	}
	return c.SourceLayout().Validate()
}

// SourceLayout merges the configured overrides over srctree.DefaultLayout.
func (c *Config) SourceLayout() srctree.Layout {
	l := srctree.DefaultLayout()
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&l.SourceDir, c.Layout.SourceDir)
	override(&l.EntryFile, c.Layout.EntryFile)
	override(&l.ModuleFile, c.Layout.ModuleFile)
	override(&l.Keyword, c.Layout.Keyword)
	override(&l.Manifest, c.Layout.Manifest)
	override(&l.Order, c.Layout.Order)
	return l
}

// FileMode parses OutputMode as octal permission bits. A mode granting no
// permissions is rejected.
func (c *Config) FileMode() (os.FileMode, error) {
	mode, err := strconv.ParseUint(c.OutputMode, 8, 32)
	if err != nil || mode > 0o777 {
		return 0, fmt.Errorf("output_mode: %q is not an octal permission", c.OutputMode)
	}
	if mode == 0 {
		return 0, fmt.Errorf("output_mode: %q grants no permissions", c.OutputMode)
	}
	return os.FileMode(mode), nil
}

// DataDir returns the directory for the log file: the config dir when one
// is given, otherwise the default config location.
func DataDir(configDir string) string {
	if configDir != "" {
		return configDir
	}
	return filepath.Dir(getConfigPath())
}

func getConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "scriptify", fileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "scriptify", fileName)
	}

	return filepath.Join(home, ".config", "scriptify", fileName)
}
