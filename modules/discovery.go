package modules

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Dir manages the module configs under one directory. Each module group
// lives in <dir>/<group>.yaml.
type Dir struct {
	root   string
	logger *slog.Logger
}

// NewDir creates a module config directory handle.
func NewDir(root string, logger *slog.Logger) *Dir {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dir{root: root, logger: logger}
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.root
}

// ConfigPath returns the config file path for a module group.
func (d *Dir) ConfigPath(name string) string {
	return filepath.Join(d.root, name+".yaml")
}

// Load reads the config for a module group. A missing file returns
// ErrNotFound (wrapped).
func (d *Dir) Load(name string) (*Config, error) {
	return load(d.ConfigPath(name))
}

// Discover finds every module config under the directory, recursively.
// Unparseable files are skipped with a warning.
func (d *Dir) Discover() ([]*Config, error) {
	pattern := filepath.Join(d.root, "**", "*.{yaml,yml}")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob module configs: %w", err)
	}

	var configs []*Config
	for _, match := range matches {
		cfg, err := load(match)
		if err != nil {
			d.logger.Warn("Skipping unreadable module config",
				slog.String("path", match),
				slog.String("error", err.Error()))
			continue
		}
		configs = append(configs, cfg)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs, nil
}

// defaultSettings seed each group's config with the keys the update
// strategies patch.
var defaultSettings = map[string]map[string]string{
	DataExtractors: {
		"commands":  "",
		"tasks":     "",
		"settings":  "",
		"hooks":     "",
		"docs-repo": "",
	},
	ContentBuilders: {
		"tone":             "direct",
		"example-prompts":  "three per command",
		"parameter-tables": "name, type, default, description",
	},
	QualityControllers: {
		"link-check":        "enabled",
		"schema-validation": "enabled",
	},
	FileGenerators: {
		"output-dir":        "docs/generated",
		"naming":            "kebab-case",
		"generate.examples": "true",
	},
	TemplateProcessors: {
		"page": "page.tmpl",
	},
}

// Scaffold writes a default config for every module group that does not
// already have one. Existing files are left untouched.
func (d *Dir) Scaffold() error {
	for _, name := range Groups {
		path := d.ConfigPath(name)
		if _, err := load(path); err == nil {
			continue
		}

		settings := map[string]string{}
		for k, v := range defaultSettings[name] {
			settings[k] = v
		}
		cfg := &Config{Name: name, Settings: settings, path: path}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("scaffold %s: %w", name, err)
		}
		d.logger.Info("Created module config", slog.String("path", path))
	}
	return nil
}
