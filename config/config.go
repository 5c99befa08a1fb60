// Package config provides configuration loading and management for
// Specsync.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/specsync/report"
)

// Config represents the complete Specsync configuration
type Config struct {
	Spec    SpecConfig    `yaml:"spec"`
	State   StateConfig   `yaml:"state"`
	Modules ModulesConfig `yaml:"modules"`
	Reports ReportsConfig `yaml:"reports"`
	Log     LogConfig     `yaml:"log"`
	Watch   WatchConfig   `yaml:"watch"`
}

// SpecConfig configures the spec document to synchronize from
type SpecConfig struct {
	// Path is the spec file (markdown, text, or HTML export)
	Path string `yaml:"path"`
}

// StateConfig configures where sync state is persisted
type StateConfig struct {
	// Dir holds the fingerprint history and the parsed-spec snapshot
	Dir string `yaml:"dir"`
}

// ModulesConfig configures the documentation module configs
type ModulesConfig struct {
	// Dir is the root directory of the module config files
	Dir string `yaml:"dir"`
}

// ReportsConfig configures sync report output
type ReportsConfig struct {
	// Dir receives generated reports (default: <state dir>/reports)
	Dir string `yaml:"dir"`
	// Format selects the report rendering ("markdown" or "text")
	Format string `yaml:"format"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `yaml:"level"`
}

// WatchConfig configures continuous watch mode
type WatchConfig struct {
	// Debounce is the quiet period before a pass runs after a change
	Debounce time.Duration `yaml:"debounce"`
	// MetricsAddr exposes Prometheus metrics when non-empty (e.g. ":9090")
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Spec: SpecConfig{
			Path: "spec.md",
		},
		State: StateConfig{
			Dir: ".specsync",
		},
		Modules: ModulesConfig{
			Dir: "modules",
		},
		Reports: ReportsConfig{
			Dir:    "", // Defaults to <state dir>/reports
			Format: string(report.FormatMarkdown),
		},
		Log: LogConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Debounce:    2 * time.Second,
			MetricsAddr: "",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Spec.Path == "" {
		return fmt.Errorf("spec.path is required")
	}
	if c.State.Dir == "" {
		return fmt.Errorf("state.dir is required")
	}
	if c.Modules.Dir == "" {
		return fmt.Errorf("modules.dir is required")
	}
	if _, ok := report.GetFormatInfo(report.Format(c.Reports.Format)); !ok {
		return fmt.Errorf("reports.format %q is not a supported format", c.Reports.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not a supported level", c.Log.Level)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// ReportsDir returns the reports directory, defaulting under the state
// directory when unset.
func (c *Config) ReportsDir() string {
	if c.Reports.Dir != "" {
		return c.Reports.Dir
	}
	return filepath.Join(c.State.Dir, "reports")
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Spec
	if other.Spec.Path != "" {
		c.Spec.Path = other.Spec.Path
	}

	// State
	if other.State.Dir != "" {
		c.State.Dir = other.State.Dir
	}

	// Modules
	if other.Modules.Dir != "" {
		c.Modules.Dir = other.Modules.Dir
	}

	// Reports
	if other.Reports.Dir != "" {
		c.Reports.Dir = other.Reports.Dir
	}
	if other.Reports.Format != "" {
		c.Reports.Format = other.Reports.Format
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}

	// Watch
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.MetricsAddr != "" {
		c.Watch.MetricsAddr = other.Watch.MetricsAddr
	}
}
