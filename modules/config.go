// Package modules provides the typed patchable configuration for the
// downstream module groups the dispatcher writes to.
package modules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Downstream module group names.
const (
	DataExtractors     = "data-extractors"
	ContentBuilders    = "content-builders"
	QualityControllers = "quality-controllers"
	FileGenerators     = "file-generators"
	TemplateProcessors = "template-processors"
)

// Groups lists all downstream module groups.
var Groups = []string{
	DataExtractors,
	ContentBuilders,
	QualityControllers,
	FileGenerators,
	TemplateProcessors,
}

// Common module config errors.
var (
	// ErrNotFound is returned when a module group has no config file.
	ErrNotFound = errors.New("module config not found")
	// ErrEmptyKey is returned when a setting key is empty.
	ErrEmptyKey = errors.New("setting key is empty")
)

// Patchable is the write contract the dispatcher uses: read a configured
// value, substitute a new one, and rewrite the whole representation.
// Raw-text scanning of the target module never happens.
type Patchable interface {
	// Module returns the module group name.
	Module() string

	// Get returns the configured value for key and whether it exists.
	Get(key string) (string, bool)

	// Set substitutes the value for key.
	Set(key, value string) error

	// Save rewrites the persisted representation as a whole.
	Save() error
}

// Config is the YAML-backed configuration of one module group: a name
// and a flat settings map of configured values (source URLs, template
// file names, formatting toggles).
type Config struct {
	// Name is the module group name.
	Name string `yaml:"name"`

	// Settings maps configured keys to their values.
	Settings map[string]string `yaml:"settings"`

	path string
}

// Module returns the module group name.
func (c *Config) Module() string {
	return c.Name
}

// Get returns the configured value for key and whether it exists.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.Settings[key]
	return v, ok
}

// Set substitutes the value for key.
func (c *Config) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if c.Settings == nil {
		c.Settings = map[string]string{}
	}
	c.Settings[key] = value
	return nil
}

// Keys returns the configured keys, sorted.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.Settings))
	for k := range c.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Save rewrites the config file as a whole.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("module config %q has no backing file", c.Name)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create modules directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal module config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write module config: %w", err)
	}
	return nil
}

// load reads and parses one module config file.
func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read module config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse module config %s: %w", path, err)
	}
	if cfg.Settings == nil {
		cfg.Settings = map[string]string{}
	}
	if cfg.Name == "" {
		base := filepath.Base(path)
		cfg.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	cfg.path = path
	return &cfg, nil
}
